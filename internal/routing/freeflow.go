package routing

import (
	"math"

	"github.com/LdDl/ch"
	"github.com/pkg/errors"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
)

// FreeFlow answers travel-time queries on the uncongested network. It is
// built once from static distances with contraction hierarchies, so it never
// sees traffic and serves as the baseline for congestion delay.
type FreeFlow struct {
	hierarchy *ch.Graph
	timeScale float64
}

// NewFreeFlow contracts g using edge distances. Self-loops are dropped and
// parallel edges collapse to the shortest one.
func NewFreeFlow(g *graph.Graph, timeScale float64) (*FreeFlow, error) {
	h := &ch.Graph{}
	for i := 0; i < g.NumNodes(); i++ {
		if err := h.CreateVertex(int64(i)); err != nil {
			return nil, errors.Wrapf(err, "can't create vertex for node %s", g.Node(graph.NodeIndex(i)).ID)
		}
	}

	type pair struct{ a, b graph.NodeIndex }
	shortest := make(map[pair]float64)
	order := make([]pair, 0, g.NumEdges())
	for _, e := range g.Edges() {
		if e.A == e.B {
			continue
		}
		p := pair{e.A, e.B}
		if p.a > p.b {
			p.a, p.b = p.b, p.a
		}
		d, seen := shortest[p]
		if !seen {
			order = append(order, p)
		}
		if !seen || e.Distance < d {
			shortest[p] = e.Distance
		}
	}

	for _, p := range order {
		d := shortest[p]
		if err := h.AddEdge(int64(p.a), int64(p.b), d); err != nil {
			return nil, errors.Wrap(err, "can't add edge")
		}
		if err := h.AddEdge(int64(p.b), int64(p.a), d); err != nil {
			return nil, errors.Wrap(err, "can't add reverse edge")
		}
	}
	h.PrepareContractionHierarchies()

	return &FreeFlow{hierarchy: h, timeScale: timeScale}, nil
}

// TimeCost returns the uncongested travel time between two nodes and
// whether dst is reachable at all.
func (f *FreeFlow) TimeCost(src, dst graph.NodeIndex) (float64, bool) {
	if src == dst {
		return 0, true
	}
	dist, path := f.hierarchy.ShortestPath(int64(src), int64(dst))
	if dist < 0 || math.IsInf(dist, 1) || len(path) == 0 {
		return 0, false
	}
	return dist * f.timeScale, true
}
