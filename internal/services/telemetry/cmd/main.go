package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgelab-iot/weathermq/internal/sensorfeed"
	"github.com/edgelab-iot/weathermq/internal/services/telemetry"
	"github.com/edgelab-iot/weathermq/pkg/mqttclient"
)

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	hostname, _ := os.Hostname()
	cfg := struct {
		AppName  string
		Topic    string
		DeviceID string

		SensorBroker struct {
			Host string
			Port int
		}
		HTTPPort int
	}{
		AppName:  envStr("APP_NAME", "weathermq"),
		Topic:    envStr("TELEMETRY_TOPIC", "weather/telemetry"),
		DeviceID: envStr("DEVICE_ID", hostname),
		HTTPPort: envInt("HTTP_PORT", 8080),
	}
	cfg.SensorBroker.Host = envStr("SENSOR_BROKER_HOST", "localhost")
	cfg.SensorBroker.Port = envInt("SENSOR_BROKER_PORT", 1883)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Telemetry publisher (fixed upstream endpoint) ===
	pub, err := telemetry.NewPublisher(cfg.AppName, cfg.Topic, cfg.DeviceID)
	if err != nil {
		log.Fatalf("publisher init error: %v", err)
	}

	// === Sensor feed (local delivery of readings) ===
	feedClient, err := mqttclient.NewConn(&mqttclient.Config{
		BrokerURI: "tcp://" + cfg.SensorBroker.Host + ":" + strconv.Itoa(cfg.SensorBroker.Port),
		AppName:   cfg.AppName + "-feed",
	}, ctx)
	if err != nil {
		log.Fatalf("sensor feed connection error: %v", err)
	}
	consumer := mqttclient.NewConsumer(feedClient, sensorfeed.TopicFilter, sensorfeed.ReadingQoS, nil)
	feed := sensorfeed.NewFeed(consumer, pub)
	feed.Start(ctx)

	pub.Start()
	log.Printf("telemetry: publishing to %s as device %q", cfg.Topic, cfg.DeviceID)

	// === HTTP ===
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		st := pub.SessionState()
		type status struct {
			Status  string `json:"status"`
			Session string `json:"session"`
		}
		out := status{Status: "ok", Session: st.String()}
		if st != mqttclient.StateConnected {
			out.Status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	hs := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("telemetry: HTTP listening on :%d", cfg.HTTPPort)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// === Wait for signal ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Printf("telemetry: shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)

	pub.Close()
}
