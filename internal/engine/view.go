package engine

import (
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
)

// RequestView converts r into its transport view, reading the current
// congestion of its edges from g.
func RequestView(g *graph.Graph, r *Request) models.RequestView {
	v := models.RequestView{
		ID:          r.ID,
		Source:      g.Node(r.Source).ID,
		Destination: g.Node(r.Destination).ID,
		Status:      r.Status,
		StartTime:   r.StartTime,
		TimeCost:    r.TimeCost,
		EndTime:     models.FiniteOrNil(r.EndTime),
	}
	if len(r.Nodes) > 0 {
		v.Path = make([]string, len(r.Nodes))
		for i, n := range r.Nodes {
			v.Path[i] = g.Node(n).ID
		}
	}
	if len(r.Edges) > 0 {
		v.Edges = make([]models.EdgeView, len(r.Edges))
		for i, e := range r.Edges {
			v.Edges[i] = EdgeView(g, e)
		}
	}
	return v
}

// EdgeView converts edge e into its transport view
func EdgeView(g *graph.Graph, e graph.EdgeIndex) models.EdgeView {
	edge := g.Edge(e)
	return models.EdgeView{
		Index:    int(e),
		From:     g.Node(edge.A).ID,
		To:       g.Node(edge.B).ID,
		Distance: edge.Distance,
		Traffic:  edge.Traffic,
		Weight:   edge.Weight,
	}
}

// AdmissionResult converts an outcome into its transport view
func AdmissionResult(g *graph.Graph, o *Outcome) models.AdmissionResult {
	res := models.AdmissionResult{
		Request: RequestView(g, o.Request),
		Active:  o.Active,
	}
	for _, r := range o.Evicted {
		res.Evicted = append(res.Evicted, r.ID)
	}
	if o.HasBaseline {
		ff, delay := o.FreeFlowTimeCost, o.CongestionDelay
		res.FreeFlowTimeCost = &ff
		res.CongestionDelay = &delay
	}
	return res
}
