package sensorfeed

import (
	"math/rand"
	"sync"
)

// Walk bounds keeping the simulated weather plausible.
const (
	startTemperature = 21.5
	minTemperature   = 15.0
	maxTemperature   = 30.0

	startPressure = 1013.25 // hPa
	minPressure   = 980.0
	maxPressure   = 1040.0
)

// DataGenerator produces a random walk of temperature and pressure readings
// for the simulated sensor binary.
type DataGenerator struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	temperature float64
	pressure    float64
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rnd:         rand.New(rand.NewSource(seed)),
		temperature: startTemperature,
		pressure:    startPressure,
	}
}

// Next advances the walk and returns the new readings.
func (g *DataGenerator) Next() (temperature, pressure float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.temperature = clamp(g.temperature+g.rnd.Float64()*0.4-0.2, minTemperature, maxTemperature)
	g.pressure = clamp(g.pressure+g.rnd.Float64()-0.5, minPressure, maxPressure)
	return g.temperature, g.pressure
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
