// Package routing finds single-pair shortest paths over the current,
// possibly congested, edge weights of a graph.
//
// Every search allocates its own SearchState, so node scratch values
// (tentative cost, parent, edge to parent) start at +Inf / none and never
// outlive the search that produced them.
//
// Complexity: O((V + E) log V) time, O(V) space. The queue holds each node at
// most once; a cheaper relaxation removes the queued node and reinserts it.
package routing

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/minheap"
)

// DefaultTimeScale converts path weight into travel time units.
const DefaultTimeScale = 120.0

// ErrNoPath is the expected outcome when the destination is unreachable
// under the current weights. It is not a fault.
var ErrNoPath = errors.New("routing: no path between source and destination")

// SearchState is the per-search scratch, indexed by graph.NodeIndex.
type SearchState struct {
	Cost   []float64
	Parent []graph.NodeIndex
	Via    []graph.EdgeIndex
	// Settled counts nodes extracted from the queue.
	Settled int
}

func newSearchState(n int) *SearchState {
	st := &SearchState{
		Cost:   make([]float64, n),
		Parent: make([]graph.NodeIndex, n),
		Via:    make([]graph.EdgeIndex, n),
	}
	for i := 0; i < n; i++ {
		st.Cost[i] = math.Inf(1)
		st.Parent[i] = graph.NoNode
		st.Via[i] = graph.NoEdge
	}
	return st
}

// Route is a path in source to destination order.
type Route struct {
	Nodes []graph.NodeIndex
	Edges []graph.EdgeIndex
	// Weight is the sum of congested edge weights at search time.
	Weight float64
	// TimeCost is Weight scaled into time units.
	TimeCost float64
}

// Engine runs Dijkstra searches
type Engine struct {
	timeScale float64
}

// Option configures an Engine
type Option func(*Engine)

// WithTimeScale sets the time units per unit of weight
func WithTimeScale(scale float64) Option {
	return func(e *Engine) {
		e.timeScale = scale
	}
}

// NewEngine creates an engine with DefaultTimeScale unless overridden
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeScale: DefaultTimeScale}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TimeScale returns the weight to time multiplier
func (e *Engine) TimeScale() float64 {
	return e.timeScale
}

// Route returns the cheapest path from src to dst, or ErrNoPath.
func (e *Engine) Route(g *graph.Graph, src, dst graph.NodeIndex) (*Route, error) {
	r, _, err := e.RouteWithState(g, src, dst)
	return r, err
}

// RouteWithState is Route that also hands back the search scratch.
func (e *Engine) RouteWithState(g *graph.Graph, src, dst graph.NodeIndex) (*Route, *SearchState, error) {
	if !g.HasNode(src) {
		return nil, nil, fmt.Errorf("routing: source index %d: %w", src, graph.ErrUnknownNode)
	}
	if !g.HasNode(dst) {
		return nil, nil, fmt.Errorf("routing: destination index %d: %w", dst, graph.ErrUnknownNode)
	}

	st := newSearchState(g.NumNodes())
	if err := search(g, st, src, dst); err != nil {
		return nil, st, err
	}

	if math.IsInf(st.Cost[dst], 1) {
		return nil, st, ErrNoPath
	}

	route := reconstruct(st, src, dst)
	route.Weight = st.Cost[dst]
	route.TimeCost = route.Weight * e.timeScale
	return route, st, nil
}

// search settles nodes in cost order until dst is extracted or the queue
// drains. Stopping at dst is safe because weights are non-negative.
func search(g *graph.Graph, st *SearchState, src, dst graph.NodeIndex) error {
	pq := minheap.New(func(n graph.NodeIndex) float64 { return st.Cost[n] }, g.NumNodes())

	st.Cost[src] = 0
	if err := pq.Insert(src); err != nil {
		return &graph.InvariantViolation{Op: "route", Detail: "queue source", Err: err}
	}

	for pq.Len() > 0 {
		u, _ := pq.ExtractMin()
		st.Settled++
		if u == dst {
			return nil
		}

		for _, ei := range g.Incident(u) {
			edge := g.Edge(ei)
			v := edge.Other(u)
			cost := st.Cost[u] + edge.Weight
			if cost >= st.Cost[v] {
				continue
			}
			// decrease-key: the queue orders by st.Cost, so take v out before
			// lowering its cost.
			pq.Remove(v)
			st.Cost[v] = cost
			st.Parent[v] = u
			st.Via[v] = ei
			if err := pq.Insert(v); err != nil {
				return &graph.InvariantViolation{Op: "route", Detail: fmt.Sprintf("queue node %d", v), Err: err}
			}
		}
	}
	return nil
}

func reconstruct(st *SearchState, src, dst graph.NodeIndex) *Route {
	var nodes []graph.NodeIndex
	var edges []graph.EdgeIndex
	for n := dst; ; n = st.Parent[n] {
		nodes = append(nodes, n)
		if n == src || st.Parent[n] == graph.NoNode {
			break
		}
		edges = append(edges, st.Via[n])
	}

	slices.Reverse(nodes)
	slices.Reverse(edges)
	return &Route{Nodes: nodes, Edges: edges}
}
