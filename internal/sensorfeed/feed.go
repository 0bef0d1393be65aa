package sensorfeed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/edgelab-iot/weathermq/internal/model/messages"
	"github.com/edgelab-iot/weathermq/pkg/dedup"
	"github.com/edgelab-iot/weathermq/pkg/mqttclient"
)

// Topic layout for locally delivered sensor readings.
const (
	TopicFilter      = "sensor/reading/#"
	TopicTemperature = "sensor/reading/temperature"
	TopicPressure    = "sensor/reading/pressure"
)

// QoS for the reading subscription. QoS1 means redeliveries are possible;
// the feed dedups them by payload hash.
const ReadingQoS = 1

// Reading is the wire format produced by sensor sources.
type Reading struct {
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// SensorSink receives readings as they arrive. The telemetry Publisher
// satisfies this.
type SensorSink interface {
	OnTemperature(v float64)
	OnPressure(v float64)
}

// Feed is the event-delivery side of the system: it subscribes to the sensor
// topics and forwards each reading to the sink. Callbacks run on the MQTT
// client's goroutines, fully decoupled from the publish cadence.
type Feed struct {
	consumer mqttclient.IConsumer
	sink     SensorSink
	deduper  *dedup.Deduper
}

func NewFeed(consumer mqttclient.IConsumer, sink SensorSink) *Feed {
	return &Feed{
		consumer: consumer,
		sink:     sink,
		deduper:  dedup.New(2*time.Minute, 10000),
	}
}

// Start begins consuming in the background until ctx is cancelled.
func (f *Feed) Start(ctx context.Context) {
	f.consumer.SetHandler(f.handleMessage)
	go f.consumer.ConsumeMessage(ctx)
}

func (f *Feed) handleMessage(_ string, msg mqtt.Message) error {
	// QoS1 redelivery carries the same payload, so the same hash
	h := sha256.Sum256(msg.Payload())
	if f.deduper != nil && !f.deduper.ShouldProcess(hex.EncodeToString(h[:])) {
		return nil
	}

	var r Reading
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		return fmt.Errorf("invalid sensor reading: %w", err)
	}
	switch r.Metric {
	case messages.MetricTemperature:
		f.sink.OnTemperature(r.Value)
	case messages.MetricPressure:
		f.sink.OnPressure(r.Value)
	default:
		// unknown metric, ignore
	}
	return nil
}
