// Package opt implements HACOPSO, a hybrid adaptive chaotic opposition-based
// particle swarm optimizer for maritime routes. A candidate route is encoded
// as 2*W interpolation fractions placing W interior waypoints between start
// and destination; the swarm searches that unit hypercube for the path that
// best trades off fuel, transit time and safety.
package opt

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// Coord is a latitude/longitude pair in decimal degrees.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Priorities weights the three route objectives. The weights are used
// directly as linear-combination coefficients and are not required to sum
// to 1.
type Priorities struct {
	Fuel   float64
	Time   float64
	Safety float64
}

// DefaultPriorities is the split used for weights a caller leaves unset.
func DefaultPriorities() Priorities {
	return Priorities{Fuel: 0.33, Time: 0.33, Safety: 0.34}
}

// PrioritiesFromMap builds Priorities from a request-level map, filling in
// defaults for missing keys only. An explicit zero weight stays zero.
func PrioritiesFromMap(m map[string]float64) Priorities {
	p := DefaultPriorities()
	if v, ok := m["fuel"]; ok {
		p.Fuel = v
	}
	if v, ok := m["time"]; ok {
		p.Time = v
	}
	if v, ok := m["safety"]; ok {
		p.Safety = v
	}
	return p
}

// Telemetry carries the environmental readings the optimizer reacts to.
// Remaining telemetry fields (current, visibility, temperature) are
// collaborator concerns and never reach the core.
type Telemetry struct {
	WaveHeight float64
	WindSpeed  float64
}

// Scores reports the per-objective sub-scores of the final path, each in
// [0,1] with lower = better, plus the overall figure 100 - bestFitness*10.
// The overall scale can leave [0,100]; that quirk is part of the reporting
// contract and is preserved as-is.
type Scores struct {
	Fuel    float64 `json:"fuel"`
	Time    float64 `json:"time"`
	Safety  float64 `json:"safety"`
	Overall float64 `json:"overall"`
}

// RouteResult is the optimizer output consumed by the API and store layers.
type RouteResult struct {
	Path     []Coord
	Distance float64 // nautical miles
	ETA      string  // "<N> hrs" at 15 kn
	Fuel     float64 // tonnes
	Scores   Scores
}

// Config holds the fixed hyperparameters of a search. All fields are
// read-only during a run.
type Config struct {
	Particles  int // swarm size
	Iterations int // fixed-cost loop, no early exit
	Waypoints  int // interior waypoints W; position dimension is 2*W

	WMax, WMin   float64 // inertia, decays linearly
	C1Max, C1Min float64 // cognitive pull, decays linearly
	C2Min, C2Max float64 // social pull, grows linearly

	ChaosFactor float64 // base magnitude of the logistic-map perturbation
}

// DefaultConfig returns the standard HACOPSO parameterization.
func DefaultConfig() Config {
	return Config{
		Particles:   50,
		Iterations:  100,
		Waypoints:   10,
		WMax:        0.9,
		WMin:        0.4,
		C1Max:       2.5,
		C1Min:       1.5,
		C2Min:       1.5,
		C2Max:       2.5,
		ChaosFactor: 0.1,
	}
}

func (c Config) validate() error {
	if c.Particles <= 0 {
		return fmt.Errorf("opt: particles must be > 0, got %d", c.Particles)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("opt: iterations must be > 0, got %d", c.Iterations)
	}
	if c.Waypoints <= 0 {
		return fmt.Errorf("opt: waypoints must be > 0, got %d", c.Waypoints)
	}
	if c.ChaosFactor < 0 || !isFinite(c.ChaosFactor) {
		return fmt.Errorf("opt: chaosFactor must be finite and >= 0")
	}
	return nil
}

type particle struct {
	position     []float64
	velocity     []float64
	bestPosition []float64
	fitness      float64
	bestFitness  float64
}

type swarm struct {
	particles  []*particle
	gbPosition []float64
	gbFitness  float64
}

// Engine runs HACOPSO searches. It holds no swarm state between calls; the
// only thing that persists is the random stream, seeded once at construction
// so a sequence of calls on one engine is reproducible end to end. A mutex
// serializes runs to keep that stream deterministic — callers that want
// parallel searches construct one engine (with its own seed) per worker.
type Engine struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine validates cfg and returns an engine whose random stream starts
// at seed.
func NewEngine(cfg Config, seed int64) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, rng: rand.New(rand.NewSource(seed))}, nil
}

// Config returns the engine's hyperparameters.
func (e *Engine) Config() Config { return e.cfg }

// Optimize searches for a route from start to destination under the given
// objective weights. When quantum is set, the convex-recombination operator
// runs every 5th iteration. The call is synchronous and fixed-cost: it
// always runs the configured number of iterations.
func (e *Engine) Optimize(start, destination Coord, pr Priorities, quantum bool) (RouteResult, error) {
	if err := validateCoord("start", start); err != nil {
		return RouteResult{}, err
	}
	if err := validateCoord("destination", destination); err != nil {
		return RouteResult{}, err
	}
	if err := validatePriorities(pr); err != nil {
		return RouteResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sw := e.newSwarm()
	for t := 0; t < e.cfg.Iterations; t++ {
		frac := float64(t) / float64(e.cfg.Iterations)
		w := e.cfg.WMax - (e.cfg.WMax-e.cfg.WMin)*frac
		c1 := e.cfg.C1Max - (e.cfg.C1Max-e.cfg.C1Min)*frac
		c2 := e.cfg.C2Min + (e.cfg.C2Max-e.cfg.C2Min)*frac

		// Fitness pass: personal and global bests move only here, with
		// strict < so ties keep the incumbent.
		for _, p := range sw.particles {
			p.fitness = Fitness(p.position, start, destination, pr)
			if p.fitness < p.bestFitness {
				p.bestFitness = p.fitness
				copy(p.bestPosition, p.position)
			}
			if p.fitness < sw.gbFitness {
				sw.gbFitness = p.fitness
				copy(sw.gbPosition, p.position)
			}
		}

		// Velocity/position pass. r1 and r2 are one scalar pair per
		// particle per iteration, shared across dimensions.
		for _, p := range sw.particles {
			r1 := e.rng.Float64()
			r2 := e.rng.Float64()
			chaos := e.chaosVector(len(p.position), frac)
			for i := range p.position {
				p.velocity[i] = w*p.velocity[i] +
					c1*r1*(p.bestPosition[i]-p.position[i]) +
					c2*r2*(sw.gbPosition[i]-p.position[i]) +
					chaos[i]
				p.position[i] = clamp01(p.position[i] + p.velocity[i])
			}
		}

		if t%10 == 0 {
			oppositionPass(sw, start, destination, pr)
		}
		if quantum && t%5 == 0 {
			e.recombinePairs(sw)
		}
	}

	return e.assemble(sw, start, destination, pr)
}

// Reoptimize re-plans the remainder of a voyage under new environmental
// risk: it restarts the search from the point one-third along the current
// path, with safety weighted up by wave and wind risk and recombination
// disabled.
func (e *Engine) Reoptimize(currentPath []Coord, t Telemetry) (RouteResult, error) {
	if len(currentPath) == 0 {
		return RouteResult{}, fmt.Errorf("opt: reoptimize requires a non-empty current path")
	}
	for i, c := range currentPath {
		if !isFinite(c.Lat) || !isFinite(c.Lon) {
			return RouteResult{}, fmt.Errorf("opt: current path waypoint %d is not finite", i)
		}
	}
	if !isFinite(t.WaveHeight) || !isFinite(t.WindSpeed) {
		return RouteResult{}, fmt.Errorf("opt: telemetry readings must be finite")
	}
	start := currentPath[len(currentPath)/3]
	destination := currentPath[len(currentPath)-1]
	return e.Optimize(start, destination, AdjustedPriorities(t), false)
}

// AdjustedPriorities derives reoptimization weights from telemetry risk.
// The safety weight is deliberately unclamped: wave 6 m / wind 40 kn yields
// 1.1, and downstream scoring accepts weights above 1.
func AdjustedPriorities(t Telemetry) Priorities {
	waveRisk := t.WaveHeight / 10
	windRisk := t.WindSpeed / 50
	return Priorities{Fuel: 0.3, Time: 0.3, Safety: 0.4 + (waveRisk+windRisk)/2}
}

// newSwarm draws a fresh uniformly random swarm. Positions are not seeded
// toward the great-circle line; the search starts from an arbitrary
// interpolation pattern.
func (e *Engine) newSwarm() *swarm {
	dim := e.cfg.Waypoints * 2
	sw := &swarm{
		particles:  make([]*particle, e.cfg.Particles),
		gbPosition: make([]float64, dim),
		gbFitness:  math.Inf(1),
	}
	for i := range sw.particles {
		p := &particle{
			position:     make([]float64, dim),
			velocity:     make([]float64, dim),
			bestPosition: make([]float64, dim),
			fitness:      math.Inf(1),
			bestFitness:  math.Inf(1),
		}
		for j := 0; j < dim; j++ {
			p.position[j] = e.rng.Float64()
		}
		for j := 0; j < dim; j++ {
			p.velocity[j] = e.rng.Float64() * 0.1
		}
		copy(p.bestPosition, p.position)
		sw.particles[i] = p
	}
	return sw
}

// chaosVector draws a logistic-map perturbation whose magnitude decays
// linearly to zero over the run, shifting the swarm from exploration to
// exploitation.
func (e *Engine) chaosVector(dim int, frac float64) []float64 {
	x := e.rng.Float64()
	chaosVal := 4 * x * (1 - x)
	magnitude := e.cfg.ChaosFactor * (1 - frac)
	v := make([]float64, dim)
	for i := range v {
		v[i] = e.rng.NormFloat64() * chaosVal * magnitude
	}
	return v
}

// oppositionPass tests, for the first quarter of the swarm in index order,
// the reflection of each particle about the hypercube midpoint and keeps it
// when it strictly improves the particle's current fitness. Bests are left
// alone; the next fitness pass picks up any improvement.
func oppositionPass(sw *swarm, start, destination Coord, pr Priorities) {
	n := len(sw.particles) / 4
	for _, p := range sw.particles[:n] {
		opposite := make([]float64, len(p.position))
		for i, v := range p.position {
			opposite[i] = 1 - v
		}
		f := Fitness(opposite, start, destination, pr)
		if f < p.fitness {
			p.position = opposite
			p.fitness = f
		}
	}
}

// recombinePairs is the "quantum" step: a classical convex-combination
// crossover over adjacent particle pairs. Each pair's blend replaces exactly
// one of the two, chosen by a fair coin; an odd trailing particle is left
// untouched.
func (e *Engine) recombinePairs(sw *swarm) {
	for i := 0; i+1 < len(sw.particles); i += 2 {
		p1, p2 := sw.particles[i], sw.particles[i+1]
		alpha := e.rng.Float64()
		blend := make([]float64, len(p1.position))
		for j := range blend {
			blend[j] = alpha*p1.position[j] + (1-alpha)*p2.position[j]
		}
		if e.rng.Float64() < 0.5 {
			p1.position = blend
		} else {
			p2.position = blend
		}
	}
}

// assemble derives the final route and metrics from the global best. A
// non-finite best state means the search was corrupted by degenerate inputs;
// that is surfaced instead of persisted.
func (e *Engine) assemble(sw *swarm, start, destination Coord, pr Priorities) (RouteResult, error) {
	if !isFinite(sw.gbFitness) {
		return RouteResult{}, fmt.Errorf("opt: search produced non-finite fitness %v", sw.gbFitness)
	}
	for _, v := range sw.gbPosition {
		if !isFinite(v) {
			return RouteResult{}, fmt.Errorf("opt: search produced non-finite position component")
		}
	}

	path := GeneratePath(start, destination, sw.gbPosition)
	distance := PathDistance(path)
	if !isFinite(distance) {
		return RouteResult{}, fmt.Errorf("opt: non-finite path distance")
	}

	return RouteResult{
		Path:     path,
		Distance: distance,
		ETA:      fmt.Sprintf("%d hrs", int(distance/cruiseSpeedKnots)),
		Fuel:     distance * fuelTonnesPerNM * (1 - pr.Fuel*0.3),
		Scores: Scores{
			Fuel:    FuelScore(path),
			Time:    TimeScore(path),
			Safety:  SafetyScore(path),
			Overall: 100 - sw.gbFitness*10,
		},
	}, nil
}

func validateCoord(name string, c Coord) error {
	if !isFinite(c.Lat) || !isFinite(c.Lon) {
		return fmt.Errorf("opt: %s coordinate must be finite, got (%v, %v)", name, c.Lat, c.Lon)
	}
	return nil
}

func validatePriorities(pr Priorities) error {
	for _, w := range []struct {
		name string
		v    float64
	}{{"fuel", pr.Fuel}, {"time", pr.Time}, {"safety", pr.Safety}} {
		if !isFinite(w.v) || w.v < 0 {
			return fmt.Errorf("opt: priority %s must be finite and >= 0, got %v", w.name, w.v)
		}
	}
	return nil
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
