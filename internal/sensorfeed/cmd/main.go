package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edgelab-iot/weathermq/internal/model/messages"
	"github.com/edgelab-iot/weathermq/internal/sensorfeed"
	"github.com/edgelab-iot/weathermq/pkg/mqttclient"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker URI")
	clientID := flag.String("client-id", "", "MQTT client ID (generated if empty)")
	interval := flag.Duration("interval", 2*time.Second, "reading interval")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random walk seed")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := mqttclient.NewConn(&mqttclient.Config{
		BrokerURI: *broker,
		ClientID:  *clientID,
		AppName:   "weathermq-sensor-sim",
	}, ctx)
	if err != nil {
		log.Fatal(err)
	}

	tempPub := mqttclient.NewPublisher(client, sensorfeed.TopicTemperature, 0)
	pressPub := mqttclient.NewPublisher(client, sensorfeed.TopicPressure, 0)
	gen := sensorfeed.NewDataGenerator(*seed)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	publish := func(pub mqttclient.IPublisher, metric string, value float64) {
		b, err := json.Marshal(sensorfeed.Reading{
			Metric:    metric,
			Value:     value,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("marshal error: %v", err)
			return
		}
		if err := pub.PublishMessage(b); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	for {
		select {
		case <-sigCh:
			log.Println("sensor-sim: shutting down")
			return
		case <-ticker.C:
			t, p := gen.Next()
			log.Printf("sensor-sim: temperature=%.2f pressure=%.2f", t, p)
			publish(tempPub, messages.MetricTemperature, t)
			publish(pressPub, messages.MetricPressure, p)
		}
	}
}
