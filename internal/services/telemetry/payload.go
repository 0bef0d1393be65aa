package telemetry

import (
	"math"
	"strconv"
	"time"

	"github.com/edgelab-iot/weathermq/internal/model/messages"
)

// BuildPayload renders the telemetry message for one publish cycle. Pure and
// deterministic: the same snapshot and timestamp always yield the same
// message. A metric is included iff it holds a real number; Data is included
// iff at least one metric is.
func BuildPayload(snap Snapshot, deviceID string, now time.Time) messages.TelemetryMessage {
	data := make(map[string]string, 2)
	if !math.IsNaN(snap.Temperature) {
		data[messages.MetricTemperature] = formatValue(snap.Temperature)
	}
	if !math.IsNaN(snap.Pressure) {
		data[messages.MetricPressure] = formatValue(snap.Pressure)
	}

	msg := messages.TelemetryMessage{
		DeviceID:  deviceID,
		Channel:   messages.ChannelPubSub,
		Timestamp: now.UnixMilli(),
	}
	if len(data) > 0 {
		msg.Data = data
	}
	return msg
}

// formatValue string-encodes a reading for the wire; consumers expect plain
// decimal notation, not JSON numbers.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
