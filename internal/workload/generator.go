// Package workload generates synthetic admission streams for a network.
package workload

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/config"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/utils"
)

// Generator draws admission times and endpoints from a seeded source
type Generator struct {
	rng *utils.RandSource
}

// NewGenerator creates a new workload generator
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: utils.NewRandSource(seed),
	}
}

// ScheduleArrivals schedules admissions in [w.Start, w.Start+w.Duration)
// between distinct random nodes and returns how many were scheduled.
func (g *Generator) ScheduleArrivals(q *engine.AdmissionQueue, w config.Workload, nodeIDs []string) (int, error) {
	if len(nodeIDs) < 2 {
		return 0, fmt.Errorf("workload needs at least 2 nodes, got %d", len(nodeIDs))
	}
	if w.Rate <= 0 || math.IsNaN(w.Rate) || math.IsInf(w.Rate, 0) {
		return 0, fmt.Errorf("rate must be positive, got %f", w.Rate)
	}
	if w.Duration <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %f", w.Duration)
	}

	var times []float64
	switch w.Arrival {
	case config.ArrivalPoisson, "":
		times = g.poissonTimes(w.Start, w.Start+w.Duration, w.Rate)
	case config.ArrivalUniform:
		times = g.uniformTimes(w.Start, w.Start+w.Duration, w.Rate)
	case config.ArrivalConstant:
		times = constantTimes(w.Start, w.Start+w.Duration, w.Rate)
	default:
		return 0, fmt.Errorf("unknown arrival process: %s", w.Arrival)
	}

	for _, t := range times {
		a, b := g.rng.DistinctPair(len(nodeIDs))
		q.Schedule(engine.Admission{Time: t, Source: nodeIDs[a], Destination: nodeIDs[b]})
	}
	return len(times), nil
}

// poissonTimes uses exponential inter-arrival times
func (g *Generator) poissonTimes(start, end, rate float64) []float64 {
	var out []float64
	for t := start + g.rng.ExpFloat64(rate); t < end; t += g.rng.ExpFloat64(rate) {
		out = append(out, t)
	}
	return out
}

// uniformTimes places round(rate*duration) admissions uniformly over the window
func (g *Generator) uniformTimes(start, end, rate float64) []float64 {
	n := int(math.Round(rate * (end - start)))
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.rng.UniformFloat64(start, end))
	}
	return out
}

func constantTimes(start, end, rate float64) []float64 {
	interval := 1.0 / rate
	var out []float64
	for i := 0; ; i++ {
		t := start + float64(i)*interval
		if t >= end {
			break
		}
		out = append(out, t)
	}
	return out
}
