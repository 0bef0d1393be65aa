package telemetry

import (
	"math"
	"sync/atomic"
)

// atomicFloat64 is a lock-free scalar slot. Writers come from the platform's
// sensor-delivery goroutines, the reader is the publish cycle; no cross-field
// consistency is needed, so per-field atomics are enough.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (f *atomicFloat64) Store(v float64) { f.bits.Store(math.Float64bits(v)) }
func (f *atomicFloat64) Load() float64   { return math.Float64frombits(f.bits.Load()) }

// Snapshot is the set of most-recently-recorded metric values at the moment a
// publish cycle runs. NaN marks a metric that has never been recorded.
type Snapshot struct {
	Temperature float64
	Pressure    float64
}

// LatestValueCache holds the most recent reading per metric, no history.
// Readings persist across publish cycles until overwritten: an unchanged
// value keeps being republished as a steady heartbeat.
type LatestValueCache struct {
	temperature atomicFloat64
	pressure    atomicFloat64
}

func NewLatestValueCache() *LatestValueCache {
	c := &LatestValueCache{}
	c.temperature.Store(math.NaN())
	c.pressure.Store(math.NaN())
	return c
}

// RecordTemperature overwrites the temperature slot. No validation, no I/O,
// never blocks.
func (c *LatestValueCache) RecordTemperature(v float64) { c.temperature.Store(v) }

// RecordPressure overwrites the pressure slot.
func (c *LatestValueCache) RecordPressure(v float64) { c.pressure.Store(v) }

// Snapshot reads each slot independently; temperature and pressure may be
// observed from different instants.
func (c *LatestValueCache) Snapshot() Snapshot {
	return Snapshot{
		Temperature: c.temperature.Load(),
		Pressure:    c.pressure.Load(),
	}
}
