package metrics

import (
	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
)

// Common metric names
const (
	MetricAdmissions      = "admissions"
	MetricEvictions       = "evictions"
	MetricTimeCost        = "time_cost"
	MetricCongestionDelay = "congestion_delay"
	MetricPathHops        = "path_hops"
	MetricActiveRequests  = "active_requests"
	MetricTotalTraffic    = "total_traffic"
)

// OutcomeLabels creates a labels map for an admission outcome
func OutcomeLabels(status models.RequestStatus) map[string]string {
	return map[string]string{
		"outcome": string(status),
	}
}

// ObserveAdmission records one admission outcome at its simulated time.
// Collector satisfies engine.Observer.
func (c *Collector) ObserveAdmission(g *graph.Graph, o *engine.Outcome) {
	at := o.Clock
	r := o.Request

	c.Record(MetricAdmissions, 1, at, OutcomeLabels(r.Status))
	if len(o.Evicted) > 0 {
		c.Record(MetricEvictions, float64(len(o.Evicted)), at, nil)
	}
	if r.Status == models.RequestStatusRouted {
		c.Record(MetricTimeCost, r.TimeCost, at, nil)
		c.Record(MetricPathHops, float64(len(r.Edges)), at, nil)
	}
	if o.HasBaseline {
		c.Record(MetricCongestionDelay, o.CongestionDelay, at, nil)
	}
	c.Record(MetricActiveRequests, float64(o.Active), at, nil)
	c.Record(MetricTotalTraffic, float64(g.TotalTraffic()), at, nil)
}

var _ engine.Observer = (*Collector)(nil)
