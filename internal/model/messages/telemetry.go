package messages

// Metric names carried in the telemetry data object.
const (
	MetricTemperature = "temperature"
	MetricPressure    = "pressure"
)

// ChannelPubSub is the fixed channel tag expected by downstream consumers.
const ChannelPubSub = "pubsub"

// TelemetryMessage is the wire payload published every publish cycle.
// Metric values are string-encoded floats, not JSON numbers; existing
// consumers parse them as strings, so the encoding is part of the contract.
// Data is omitted entirely until at least one metric has been recorded.
type TelemetryMessage struct {
	DeviceID  string            `json:"deviceId"`
	Channel   string            `json:"channel"`
	Timestamp int64             `json:"timestamp"` // millis since epoch
	Data      map[string]string `json:"data,omitempty"`
}
