package sensor

import (
	"math/rand"
	"sync"
	"time"
)

// Simulation bounds. The random walk is clamped to these ranges so a
// long-running agent never drifts into implausible readings.
const (
	// MinTemperature and MaxTemperature bound the simulated reading in
	// degrees Celsius.
	MinTemperature = 15.0
	MaxTemperature = 35.0

	// MinHumidity and MaxHumidity bound relative humidity in percent.
	MinHumidity = 20.0
	MaxHumidity = 80.0

	// MinPressure and MaxPressure bound barometric pressure in hPa.
	MinPressure = 980.0
	MaxPressure = 1040.0

	// MinLight and MaxLight bound the ambient light level, reported as a
	// raw sensor count.
	MinLight = 0
	MaxLight = 1000
)

// Sample is a single environment reading.
type Sample struct {
	// Temperature in degrees Celsius.
	Temperature float64

	// Humidity as relative humidity in percent.
	Humidity float64

	// Pressure as barometric pressure in hPa.
	Pressure float64

	// Light as a raw ambient light count.
	Light int
}

// Sensor produces environment readings.
type Sensor interface {
	// Read returns the current environment sample.
	Read() (Sample, error)
}

// Compile-time interface checks.
var (
	_ Sensor = (*Simulated)(nil)
	_ Sensor = (*Fixed)(nil)
)

// Simulated is a Sensor that produces a bounded random walk around
// typical indoor conditions.
type Simulated struct {
	mu sync.Mutex

	// Current walk position
	current Sample

	// Random source for walk steps
	rng *rand.Rand
}

// NewSimulated creates a simulated sensor seeded from the current time.
func NewSimulated() *Simulated {
	return NewSimulatedWithSeed(time.Now().UnixNano())
}

// NewSimulatedWithSeed creates a simulated sensor with a fixed seed.
// Two sensors with the same seed produce the same sequence of samples.
func NewSimulatedWithSeed(seed int64) *Simulated {
	return &Simulated{
		current: Sample{
			Temperature: 25.0,
			Humidity:    45.0,
			Pressure:    1013.25,
			Light:       300,
		},
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Read advances the random walk by one step and returns the new sample.
func (s *Simulated) Read() (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Temperature = clampFloat(s.current.Temperature+s.step(0.5), MinTemperature, MaxTemperature)
	s.current.Humidity = clampFloat(s.current.Humidity+s.step(1.0), MinHumidity, MaxHumidity)
	s.current.Pressure = clampFloat(s.current.Pressure+s.step(0.6), MinPressure, MaxPressure)
	s.current.Light = clampInt(s.current.Light+int(s.step(25.0)), MinLight, MaxLight)

	return s.current, nil
}

// step returns a uniform random step in [-size, size).
func (s *Simulated) step(size float64) float64 {
	return (s.rng.Float64()*2 - 1) * size
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Fixed is a Sensor that returns a constant sample, or a fixed error.
// It is intended for tests that need deterministic readings.
type Fixed struct {
	mu     sync.Mutex
	sample Sample
	err    error
}

// NewFixed creates a sensor that always returns the given sample.
func NewFixed(sample Sample) *Fixed {
	return &Fixed{sample: sample}
}

// Read returns the configured sample, or the configured error.
func (f *Fixed) Read() (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Sample{}, f.err
	}
	return f.sample, nil
}

// Set replaces the sample returned by Read.
func (f *Fixed) Set(sample Sample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sample = sample
}

// SetError makes Read fail with the given error until cleared with nil.
func (f *Fixed) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
