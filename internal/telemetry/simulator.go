// Package telemetry generates synthetic maritime environmental samples for
// demos and the voyage replayer. Real sensor ingestion is out of scope.
package telemetry

import (
	"math"
	"math/rand"
	"time"

	"github.com/tan-73/bluepath-optimizer/internal/model"
)

// Baseline sea state for normal conditions.
const (
	normalWave       = 2.5
	normalWind       = 20.0
	normalCurrent    = 1.0
	normalVisibility = 10.0
	normalTemp       = 25.0
)

// Simulator produces gaussian-jittered samples around a mutable baseline.
// Not safe for concurrent use; each producer owns its own Simulator.
type Simulator struct {
	rng *rand.Rand

	baseWave       float64
	baseWind       float64
	baseCurrent    float64
	baseVisibility float64
	baseTemp       float64

	now func() time.Time
}

// NewSimulator returns a simulator with a deterministic stream for the given
// seed and normal-sea baselines.
func NewSimulator(seed int64) *Simulator {
	s := &Simulator{rng: rand.New(rand.NewSource(seed)), now: time.Now}
	s.ResetNormal()
	return s
}

// SimulateStorm shifts the baseline to storm conditions: high waves, strong
// wind, poor visibility.
func (s *Simulator) SimulateStorm() {
	s.baseWave = 6.0
	s.baseWind = 45.0
	s.baseCurrent = 2.5
	s.baseVisibility = 3.0
}

// ResetNormal restores the normal-sea baseline.
func (s *Simulator) ResetNormal() {
	s.baseWave = normalWave
	s.baseWind = normalWind
	s.baseCurrent = normalCurrent
	s.baseVisibility = normalVisibility
	s.baseTemp = normalTemp
}

// Sample draws one telemetry reading for routeID. Values are floored at
// physical minimums and rounded to two decimals.
func (s *Simulator) Sample(routeID string) model.Telemetry {
	return model.Telemetry{
		RouteID:      routeID,
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		WaveHeight:   round2(math.Max(0.5, s.baseWave+s.rng.NormFloat64()*1.0)),
		WindSpeed:    round2(math.Max(5, s.baseWind+s.rng.NormFloat64()*5)),
		CurrentSpeed: round2(math.Max(0, s.baseCurrent+s.rng.NormFloat64()*0.5)),
		Visibility:   round2(math.Max(1, s.baseVisibility+s.rng.NormFloat64()*3)),
		Temperature:  round2(s.baseTemp + s.rng.NormFloat64()*2),
	}
}

// Voyage generates a full voyage worth of samples: a storm rolls in 30% of
// the way through and clears at 60%.
func (s *Simulator) Voyage(routeID string, n int) []model.Telemetry {
	samples := make([]model.Telemetry, 0, n)
	for i := 0; i < n; i++ {
		if i == n*3/10 {
			s.SimulateStorm()
		}
		if i == n*6/10 {
			s.ResetNormal()
		}
		samples = append(samples, s.Sample(routeID))
	}
	return samples
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
