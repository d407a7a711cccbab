package engine

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
)

// ErrAlreadyReleased is wrapped in an InvariantViolation when a request's
// edges are released twice, or released without ever being committed.
var ErrAlreadyReleased = errors.New("engine: request edges not held")

// Request is one routing request and its path through the network.
// A NoPath request keeps EndTime at +Inf and holds no edges.
type Request struct {
	ID          string
	Source      graph.NodeIndex
	Destination graph.NodeIndex
	StartTime   float64
	TimeCost    float64
	EndTime     float64
	Nodes       []graph.NodeIndex
	Edges       []graph.EdgeIndex
	Status      models.RequestStatus
}

// Arrived reports whether the request finished and released its edges
func (r *Request) Arrived() bool {
	return r.Status == models.RequestStatusArrived
}

// expired reports whether a routed request has finished strictly before now
func (r *Request) expired(now float64) bool {
	return r.Status == models.RequestStatusRouted && r.EndTime < now
}

// commit adds one unit of traffic to every path edge. A failure part way
// rolls back the edges already taken so the graph stays consistent.
func (r *Request) commit(g *graph.Graph) error {
	if r.Status != models.RequestStatusPending {
		return &graph.InvariantViolation{
			Op:     "commit",
			Detail: fmt.Sprintf("request %s is %s", r.ID, r.Status),
			Err:    ErrAlreadyReleased,
		}
	}
	for i, e := range r.Edges {
		if err := g.IncreaseTraffic(e); err != nil {
			for _, done := range r.Edges[:i] {
				_ = g.DecreaseTraffic(done)
			}
			return err
		}
	}
	r.Status = models.RequestStatusRouted
	return nil
}

// release removes the traffic added by commit and marks the request arrived.
func (r *Request) release(g *graph.Graph) error {
	if r.Status != models.RequestStatusRouted {
		return &graph.InvariantViolation{
			Op:     "release",
			Detail: fmt.Sprintf("request %s is %s", r.ID, r.Status),
			Err:    ErrAlreadyReleased,
		}
	}
	for _, e := range r.Edges {
		if err := g.DecreaseTraffic(e); err != nil {
			return err
		}
	}
	r.Status = models.RequestStatusArrived
	return nil
}
