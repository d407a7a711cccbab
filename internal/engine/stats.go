package engine

import (
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/utils"
)

// RunStats accumulates admission outcomes for a simulator
type RunStats struct {
	admitted int64
	routed   int64
	noPath   int64
	arrived  int64

	timeCosts []float64
	delays    []float64
}

// NewRunStats creates empty statistics
func NewRunStats() *RunStats {
	return &RunStats{
		timeCosts: make([]float64, 0),
		delays:    make([]float64, 0),
	}
}

// Record accounts for one admission outcome
func (s *RunStats) Record(o *Outcome) {
	s.admitted++
	s.arrived += int64(len(o.Evicted))

	switch o.Request.Status {
	case models.RequestStatusRouted:
		s.routed++
		s.timeCosts = append(s.timeCosts, o.Request.TimeCost)
		if o.HasBaseline {
			s.delays = append(s.delays, o.CongestionDelay)
		}
	case models.RequestStatusNoPath:
		s.noPath++
	}
}

// RecordEvictions accounts for requests evicted outside an admission
func (s *RunStats) RecordEvictions(n int) {
	s.arrived += int64(n)
}

// Admitted returns the number of admitted requests
func (s *RunStats) Admitted() int64 {
	return s.admitted
}

// Fill writes the counters and time-cost statistics into sum
func (s *RunStats) Fill(sum *models.Summary) {
	sum.Admitted = s.admitted
	sum.Routed = s.routed
	sum.NoPath = s.noPath
	sum.Arrived = s.arrived

	if len(s.timeCosts) > 0 {
		sum.TimeCostMean = utils.Mean(s.timeCosts)
		sum.TimeCostP50 = utils.P50(s.timeCosts)
		sum.TimeCostP95 = utils.P95(s.timeCosts)
	}
	if len(s.delays) > 0 {
		sum.CongestionDelayMean = utils.Mean(s.delays)
	}
}
