package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
)

// timeBuckets cover a few hops up to long congested trips at the default
// scale of 120 time units per weight unit.
var timeBuckets = []float64{60, 120, 240, 480, 960, 1920, 3840, 7680}

// Exporter mirrors admission outcomes into Prometheus instruments on its own
// registry, so several simulators can run in one process.
type Exporter struct {
	registry *prometheus.Registry

	admissions *prometheus.CounterVec
	evictions  prometheus.Counter
	active     prometheus.Gauge
	inFlight   prometheus.Gauge
	traffic    prometheus.Gauge
	clock      prometheus.Gauge
	timeCost   prometheus.Histogram
	delay      prometheus.Histogram
	hops       prometheus.Histogram
}

// NewExporter creates an exporter with a fresh registry
func NewExporter() *Exporter {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Exporter{
		registry: reg,
		admissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "trafficsim_admissions_total",
			Help: "Admitted requests by outcome",
		}, []string{"outcome"}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "trafficsim_evictions_total",
			Help: "Requests that arrived and released their edges",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "trafficsim_active_requests",
			Help: "Requests not yet evicted, including no-path requests",
		}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "trafficsim_in_flight_requests",
			Help: "Routed requests still holding edges",
		}),
		traffic: f.NewGauge(prometheus.GaugeOpts{
			Name: "trafficsim_total_traffic",
			Help: "Sum of traffic over all edges",
		}),
		clock: f.NewGauge(prometheus.GaugeOpts{
			Name: "trafficsim_clock",
			Help: "Simulated time of the latest admission",
		}),
		timeCost: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trafficsim_time_cost",
			Help:    "Travel time of routed requests in simulated units",
			Buckets: timeBuckets,
		}),
		delay: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trafficsim_congestion_delay",
			Help:    "Travel time above the free-flow baseline",
			Buckets: []float64{0, 15, 30, 60, 120, 240, 480, 960},
		}),
		hops: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "trafficsim_path_hops",
			Help:    "Edges per routed path",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}
}

// ObserveAdmission updates the instruments from one outcome
func (e *Exporter) ObserveAdmission(g *graph.Graph, o *engine.Outcome) {
	r := o.Request
	e.admissions.WithLabelValues(string(r.Status)).Inc()
	e.evictions.Add(float64(len(o.Evicted)))
	e.active.Set(float64(o.Active))
	e.inFlight.Set(float64(o.InFlight))
	e.traffic.Set(float64(g.TotalTraffic()))
	e.clock.Set(o.Clock)

	if r.Status == models.RequestStatusRouted {
		e.timeCost.Observe(r.TimeCost)
		e.hops.Observe(float64(len(r.Edges)))
	}
	if o.HasBaseline {
		e.delay.Observe(o.CongestionDelay)
	}
}

// ObserveSummary sets the gauges from a summary, for simulators that ran
// before the exporter was attached
func (e *Exporter) ObserveSummary(sum models.Summary) {
	e.active.Set(float64(sum.Active))
	e.inFlight.Set(float64(sum.InFlight))
	e.traffic.Set(float64(sum.TotalTraffic))
	e.clock.Set(sum.Clock)
}

// Registry returns the exporter's registry
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

var _ engine.Observer = (*Exporter)(nil)
