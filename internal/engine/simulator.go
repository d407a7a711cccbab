// Package engine drives the request lifecycle: each admission advances the
// simulated clock, evicts requests that have arrived, routes the new request
// over the congested graph and commits its path.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/routing"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/logger"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/utils"
)

// ErrInvalidTime is returned for a NaN or infinite admission time.
var ErrInvalidTime = errors.New("engine: admission time must be finite")

// Outcome is the result of one admission cycle
type Outcome struct {
	Request *Request
	// Evicted are the requests that arrived before this admission, in
	// admission order.
	Evicted []*Request
	Clock   float64
	Active  int
	// InFlight counts routed requests still holding edges.
	InFlight int

	// HasBaseline is set when a free-flow baseline is configured and the
	// request was routed.
	HasBaseline      bool
	FreeFlowTimeCost float64
	CongestionDelay  float64
}

// Observer receives every successful admission outcome
type Observer interface {
	ObserveAdmission(g *graph.Graph, o *Outcome)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(g *graph.Graph, o *Outcome)

// ObserveAdmission calls f
func (f ObserverFunc) ObserveAdmission(g *graph.Graph, o *Outcome) {
	f(g, o)
}

// Simulator owns the active set and drives the graph through explicit
// commit and release calls. It is not safe for concurrent use; callers
// serving several streams must serialize Admit.
type Simulator struct {
	graph     *graph.Graph
	router    *routing.Engine
	freeFlow  *routing.FreeFlow
	active    *ActiveSet
	requests  []*Request
	byID      map[string]*Request
	ids       *utils.Sequence
	stats     *RunStats
	observers []Observer
	logger    *slog.Logger

	clock   float64
	started bool
}

// Option configures a Simulator
type Option func(*Simulator)

// WithLogger sets the simulator's logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = l
	}
}

// WithFreeFlow enables congestion delay reporting against ff
func WithFreeFlow(ff *routing.FreeFlow) Option {
	return func(s *Simulator) {
		s.freeFlow = ff
	}
}

// WithObserver registers an observer for admission outcomes
func WithObserver(o Observer) Option {
	return func(s *Simulator) {
		s.observers = append(s.observers, o)
	}
}

// NewSimulator creates a simulator over g. A nil router uses the default
// engine.
func NewSimulator(g *graph.Graph, router *routing.Engine, opts ...Option) *Simulator {
	if router == nil {
		router = routing.NewEngine()
	}
	s := &Simulator{
		graph:  g,
		router: router,
		active: NewActiveSet(),
		byID:   make(map[string]*Request),
		ids:    utils.NewSequence("r"),
		stats:  NewRunStats(),
		logger: logger.Component("simulator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddObserver registers an observer after construction
func (s *Simulator) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Admit runs one admission cycle at simulated time t. Unknown node ids are
// rejected before the clock moves. A destination that cannot be reached is
// not an error: the request is admitted with status no_path.
func (s *Simulator) Admit(t float64, srcID, dstID string) (*Outcome, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return nil, fmt.Errorf("admit at %v: %w", t, ErrInvalidTime)
	}
	src, ok := s.graph.Lookup(srcID)
	if !ok {
		return nil, &graph.ConfigError{Op: "admit source", ID: srcID, Err: graph.ErrUnknownNode}
	}
	dst, ok := s.graph.Lookup(dstID)
	if !ok {
		return nil, &graph.ConfigError{Op: "admit destination", ID: dstID, Err: graph.ErrUnknownNode}
	}

	if s.started && t < s.clock {
		s.logger.Warn("Admission time moved backwards",
			"time", t,
			"clock", s.clock)
	}
	s.clock = t
	s.started = true

	evicted, err := s.active.EvictExpired(t, s.graph)
	for _, r := range evicted {
		s.logger.Debug("Request arrived",
			"request_id", r.ID,
			"end_time", r.EndTime)
	}
	if err != nil {
		s.stats.RecordEvictions(len(evicted))
		s.logger.Error("Release failed during eviction", "time", t, "error", err)
		return nil, err
	}

	req := &Request{
		ID:          s.ids.Next(),
		Source:      src,
		Destination: dst,
		StartTime:   t,
		Status:      models.RequestStatusPending,
	}

	route, err := s.router.Route(s.graph, src, dst)
	switch {
	case errors.Is(err, routing.ErrNoPath):
		req.Status = models.RequestStatusNoPath
		req.EndTime = math.Inf(1)
		s.logger.Info("No path",
			"request_id", req.ID,
			"source", srcID,
			"destination", dstID,
			"time", t)
	case err != nil:
		s.stats.RecordEvictions(len(evicted))
		s.logger.Error("Routing failed", "request_id", req.ID, "error", err)
		return nil, err
	default:
		req.Nodes = route.Nodes
		req.Edges = route.Edges
		req.TimeCost = route.TimeCost
		req.EndTime = t + route.TimeCost
		if err := req.commit(s.graph); err != nil {
			s.stats.RecordEvictions(len(evicted))
			s.logger.Error("Commit failed", "request_id", req.ID, "error", err)
			return nil, err
		}
		s.logger.Debug("Request routed",
			"request_id", req.ID,
			"source", srcID,
			"destination", dstID,
			"hops", len(req.Edges),
			"time_cost", req.TimeCost,
			"end_time", req.EndTime)
	}

	s.active.Add(req)
	s.requests = append(s.requests, req)
	s.byID[req.ID] = req

	out := &Outcome{
		Request:  req,
		Evicted:  evicted,
		Clock:    t,
		Active:   s.active.Len(),
		InFlight: s.active.InFlight(),
	}
	if s.freeFlow != nil && req.Status == models.RequestStatusRouted {
		if ff, ok := s.freeFlow.TimeCost(src, dst); ok {
			out.HasBaseline = true
			out.FreeFlowTimeCost = ff
			out.CongestionDelay = math.Max(0, req.TimeCost-ff)
		}
	}

	s.stats.Record(out)
	for _, o := range s.observers {
		o.ObserveAdmission(s.graph, out)
	}
	return out, nil
}

// ReplayHandler inspects each admission's outcome. A non-nil return stops
// the replay. err is the Admit error, in which case o is nil.
type ReplayHandler func(a Admission, o *Outcome, err error) error

// Replay drains q through Admit in time order. Without a handler the first
// Admit error stops the replay.
func (s *Simulator) Replay(ctx context.Context, q *AdmissionQueue, handle ReplayHandler) error {
	s.logger.Info("Starting replay", "admissions", q.Size())

	n := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Replay cancelled", "processed", n)
			return ctx.Err()
		default:
		}

		a, ok := q.Next()
		if !ok {
			break
		}
		n++

		out, err := s.Admit(a.Time, a.Source, a.Destination)
		if handle != nil {
			if herr := handle(a, out, err); herr != nil {
				return herr
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("admission %d at %v: %w", n, a.Time, err)
		}
	}

	s.logger.Info("Replay completed",
		"processed", n,
		"clock", s.clock,
		"active", s.active.Len())
	return nil
}

// Graph returns the simulated network
func (s *Simulator) Graph() *graph.Graph {
	return s.graph
}

// Clock returns the time of the latest admission
func (s *Simulator) Clock() float64 {
	return s.clock
}

// Active returns the active requests in admission order
func (s *Simulator) Active() []*Request {
	return s.active.List()
}

// Request returns any request admitted so far, active or arrived
func (s *Simulator) Request(id string) (*Request, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Requests returns every admitted request in admission order
func (s *Simulator) Requests() []*Request {
	out := make([]*Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Summary returns aggregated statistics
func (s *Simulator) Summary() models.Summary {
	sum := models.Summary{
		Clock:        s.clock,
		Nodes:        s.graph.NumNodes(),
		Edges:        s.graph.NumEdges(),
		Active:       s.active.Len(),
		InFlight:     s.active.InFlight(),
		TotalTraffic: s.graph.TotalTraffic(),
	}
	s.stats.Fill(&sum)
	return sum
}
