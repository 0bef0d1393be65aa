package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "weathermq_"

var (
	registerOnce sync.Once

	publishAttempts prometheus.Counter
	publishErrors   prometheus.Counter
	cyclesSkipped   *prometheus.CounterVec
	reconnects      prometheus.Counter
	bufferDepth     prometheus.Gauge
)

// initMetrics registers the publisher metrics once per process.
func initMetrics() {
	registerOnce.Do(func() {
		publishAttempts = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "publish_attempts_total",
			Help: "Total telemetry publish attempts handed to the broker session",
		})
		publishErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "publish_errors_total",
			Help: "Total publish attempts rejected by the broker session",
		})
		cyclesSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_skipped_total",
				Help: "Publish cycles skipped by reason",
			},
			[]string{"reason"},
		)
		reconnects = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "broker_reconnects_total",
			Help: "Times the broker session reconnected after a lost connection",
		})
		bufferDepth = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "disconnected_buffer_depth",
			Help: "Messages waiting in the disconnected buffer",
		})

		prometheus.MustRegister(publishAttempts, publishErrors, cyclesSkipped, reconnects, bufferDepth)
	})
}
