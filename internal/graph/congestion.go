package graph

import "fmt"

// IncreaseTraffic adds one unit of traffic to an edge and recomputes its
// weight. It is one of the only two weight mutators.
func (g *Graph) IncreaseTraffic(idx EdgeIndex) error {
	if idx < 0 || int(idx) >= len(g.edges) {
		return &InvariantViolation{Op: "increase traffic", Detail: fmt.Sprintf("edge %d", idx), Err: ErrUnknownEdge}
	}
	e := &g.edges[idx]
	e.Traffic++
	e.Weight = g.congestedWeight(e.Distance, e.Traffic)
	return nil
}

// DecreaseTraffic removes one unit of traffic from an edge and recomputes its
// weight. Releasing an edge with zero traffic means a release had no matching
// commit; the counter stays at zero and an InvariantViolation is returned.
func (g *Graph) DecreaseTraffic(idx EdgeIndex) error {
	if idx < 0 || int(idx) >= len(g.edges) {
		return &InvariantViolation{Op: "decrease traffic", Detail: fmt.Sprintf("edge %d", idx), Err: ErrUnknownEdge}
	}
	e := &g.edges[idx]
	if e.Traffic == 0 {
		return &InvariantViolation{
			Op:     "decrease traffic",
			Detail: fmt.Sprintf("edge %s-%s", g.nodes[e.A].ID, g.nodes[e.B].ID),
			Err:    ErrTrafficUnderflow,
		}
	}
	e.Traffic--
	e.Weight = g.congestedWeight(e.Distance, e.Traffic)
	return nil
}

// TotalTraffic returns the sum of traffic over all edges
func (g *Graph) TotalTraffic() int {
	total := 0
	for i := range g.edges {
		total += g.edges[i].Traffic
	}
	return total
}

func (g *Graph) congestedWeight(distance float64, traffic int) float64 {
	return distance * (1 + g.k*float64(traffic))
}
