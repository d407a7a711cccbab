// Package export renders requests and network state as GeoJSON.
package export

import (
	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
)

// Projection maps a node coordinate to the [lon, lat] written to GeoJSON
type Projection func(orb.Point) orb.Point

// Identity writes node coordinates unchanged
func Identity(p orb.Point) orb.Point {
	return p
}

// FromMercatorKM undoes the projection applied to OSM extracts, turning Web
// Mercator kilometres back into WGS84 degrees.
func FromMercatorKM(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(orb.Point{p[0] * 1000, p[1] * 1000})
}

// Exporter builds feature collections over one graph
type Exporter struct {
	g    *graph.Graph
	proj Projection
}

// New creates an exporter. A nil projection means Identity.
func New(g *graph.Graph, proj Projection) *Exporter {
	if proj == nil {
		proj = Identity
	}
	return &Exporter{g: g, proj: proj}
}

func (x *Exporter) coord(n graph.NodeIndex) []float64 {
	p := x.proj(x.g.Node(n).Point())
	return []float64{p[0], p[1]}
}

// Route returns the path of r as a LineString feature followed by Point
// features for its source and destination. A request without a path only
// gets the two points.
func (x *Exporter) Route(r *engine.Request) *geojson.FeatureCollection {
	view := engine.RequestView(x.g, r)
	fc := geojson.NewFeatureCollection()

	if len(r.Nodes) > 1 {
		line := make([][]float64, len(r.Nodes))
		for i, n := range r.Nodes {
			line[i] = x.coord(n)
		}
		f := geojson.NewLineStringFeature(line)
		f.ID = view.ID
		f.SetProperty("request_id", view.ID)
		f.SetProperty("status", string(view.Status))
		f.SetProperty("start_time", view.StartTime)
		f.SetProperty("time_cost", view.TimeCost)
		if view.EndTime != nil {
			f.SetProperty("end_time", *view.EndTime)
		}
		f.SetProperty("path", view.Path)
		fc.AddFeature(f)
	}

	for _, end := range []struct {
		role string
		n    graph.NodeIndex
	}{{"source", r.Source}, {"destination", r.Destination}} {
		p := geojson.NewPointFeature(x.coord(end.n))
		p.SetProperty("request_id", view.ID)
		p.SetProperty("role", end.role)
		p.SetProperty("node", x.g.Node(end.n).ID)
		fc.AddFeature(p)
	}
	return fc
}

// Network returns one LineString per edge carrying its current congestion
func (x *Exporter) Network() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := 0; i < x.g.NumEdges(); i++ {
		ev := engine.EdgeView(x.g, graph.EdgeIndex(i))
		e := x.g.Edge(graph.EdgeIndex(i))
		f := geojson.NewLineStringFeature([][]float64{x.coord(e.A), x.coord(e.B)})
		f.ID = ev.Index
		f.SetProperty("from", ev.From)
		f.SetProperty("to", ev.To)
		f.SetProperty("distance", ev.Distance)
		f.SetProperty("traffic", ev.Traffic)
		f.SetProperty("weight", ev.Weight)
		fc.AddFeature(f)
	}
	return fc
}
