// Package simd exposes one simulator over HTTP and gRPC.
package simd

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	geojson "github.com/paulmach/go.geojson"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/export"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/metrics"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
)

var (
	ErrRequestNotFound = errors.New("request not found")
	ErrMissingNode     = errors.New("source and destination are required")
)

// Service serializes access to a Simulator. The admission cycle mutates the
// graph, so every call that reads or writes simulator state holds mu.
type Service struct {
	mu        sync.Mutex
	sim       *engine.Simulator
	collector *metrics.Collector
	exporter  *metrics.Exporter
	geo       *export.Exporter
	log       *slog.Logger
}

// NewService wraps sim and registers a fresh collector and Prometheus
// exporter as its observers. proj converts node coordinates for GeoJSON.
func NewService(sim *engine.Simulator, proj export.Projection) *Service {
	s := &Service{
		sim:       sim,
		collector: metrics.NewCollector(),
		exporter:  metrics.NewExporter(),
		geo:       export.New(sim.Graph(), proj),
		log:       logger.Component("simd"),
	}
	sim.AddObserver(s.collector)
	sim.AddObserver(s.exporter)
	s.exporter.ObserveSummary(sim.Summary())
	return s
}

// Admit runs one admission cycle
func (s *Service) Admit(t float64, src, dst string) (models.AdmissionResult, error) {
	if src == "" || dst == "" {
		return models.AdmissionResult{}, ErrMissingNode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.sim.Admit(t, src, dst)
	if err != nil {
		return models.AdmissionResult{}, err
	}
	return engine.AdmissionResult(s.sim.Graph(), out), nil
}

// Requests lists admitted requests, optionally only those with status
func (s *Service) Requests(status models.RequestStatus) []models.RequestView {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.sim.Requests()
	out := make([]models.RequestView, 0, len(all))
	for _, r := range all {
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, engine.RequestView(s.sim.Graph(), r))
	}
	return out
}

// Request returns one request by id
func (s *Service) Request(id string) (models.RequestView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.sim.Request(id)
	if !ok {
		return models.RequestView{}, ErrRequestNotFound
	}
	return engine.RequestView(s.sim.Graph(), r), nil
}

// RouteGeoJSON renders one request's path
func (s *Service) RouteGeoJSON(id string) (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.sim.Request(id)
	if !ok {
		return nil, ErrRequestNotFound
	}
	return s.geo.Route(r), nil
}

// NetworkGeoJSON renders every edge with its current congestion
func (s *Service) NetworkGeoJSON() *geojson.FeatureCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geo.Network()
}

// Summary returns simulator statistics
func (s *Service) Summary() models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Summary()
}

// Collector returns the time-series collector fed by every admission
func (s *Service) Collector() *metrics.Collector {
	return s.collector
}

// MetricsHandler serves the Prometheus registry
func (s *Service) MetricsHandler() http.Handler {
	return s.exporter.Handler()
}
