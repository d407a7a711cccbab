package export

import (
	"io"
	"math"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/logger"
)

func detour(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for i, id := range []string{"A", "B", "C"} {
		_, err := g.AddNode(id, float64(i), 0)
		require.NoError(t, err)
	}
	_, err := g.AddNode("D", 9, 9)
	require.NoError(t, err)
	_, err = g.AddEdge("A", "B")
	require.NoError(t, err)
	_, err = g.AddEdge("B", "C")
	require.NoError(t, err)
	_, err = g.AddEdgeWithLength("A", "C", 3)
	require.NoError(t, err)
	return g
}

func roundTrip(t *testing.T, fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	t.Helper()
	data, err := fc.MarshalJSON()
	require.NoError(t, err)
	back, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	return back
}

func TestRoute(t *testing.T) {
	g := detour(t)
	sim := engine.NewSimulator(g, nil, engine.WithLogger(logger.New("error", io.Discard)))
	o, err := sim.Admit(0, "A", "C")
	require.NoError(t, err)

	fc := roundTrip(t, New(g, nil).Route(o.Request))
	require.Len(t, fc.Features, 3)

	line := fc.Features[0]
	require.True(t, line.Geometry.IsLineString())
	assert.Equal(t, [][]float64{{0, 0}, {1, 0}, {2, 0}}, line.Geometry.LineString)
	id, err := line.PropertyString("request_id")
	require.NoError(t, err)
	assert.Equal(t, o.Request.ID, id)
	cost, err := line.PropertyFloat64("time_cost")
	require.NoError(t, err)
	assert.InDelta(t, 240.0, cost, 1e-9)
	end, err := line.PropertyFloat64("end_time")
	require.NoError(t, err)
	assert.InDelta(t, 240.0, end, 1e-9)

	src := fc.Features[1]
	require.True(t, src.Geometry.IsPoint())
	assert.Equal(t, []float64{0, 0}, src.Geometry.Point)
	role, _ := src.PropertyString("role")
	assert.Equal(t, "source", role)
	node, _ := fc.Features[2].PropertyString("node")
	assert.Equal(t, "C", node)
}

func TestRouteNoPath(t *testing.T) {
	g := detour(t)
	sim := engine.NewSimulator(g, nil, engine.WithLogger(logger.New("error", io.Discard)))
	o, err := sim.Admit(0, "A", "D")
	require.NoError(t, err)

	fc := roundTrip(t, New(g, nil).Route(o.Request))
	require.Len(t, fc.Features, 2)
	for _, f := range fc.Features {
		assert.True(t, f.Geometry.IsPoint())
	}
}

func TestNetwork(t *testing.T) {
	g := detour(t)
	require.NoError(t, g.IncreaseTraffic(0))

	fc := roundTrip(t, New(g, nil).Network())
	require.Len(t, fc.Features, 3)

	first := fc.Features[0]
	from, _ := first.PropertyString("from")
	to, _ := first.PropertyString("to")
	assert.Equal(t, "A", from)
	assert.Equal(t, "B", to)
	traffic, err := first.PropertyFloat64("traffic")
	require.NoError(t, err)
	assert.Equal(t, 1.0, traffic)
	weight, err := first.PropertyFloat64("weight")
	require.NoError(t, err)
	assert.InDelta(t, 1.3, weight, 1e-12)

	direct := fc.Features[2]
	dist, _ := direct.PropertyFloat64("distance")
	assert.Equal(t, 3.0, dist)
	assert.Equal(t, [][]float64{{0, 0}, {2, 0}}, direct.Geometry.LineString)
}

func TestFromMercatorKM(t *testing.T) {
	want := orb.Point{13.4, 52.5}
	m := project.WGS84.ToMercator(want)
	got := FromMercatorKM(orb.Point{m[0] / 1000, m[1] / 1000})
	assert.InDelta(t, want[0], got[0], 1e-9)
	assert.InDelta(t, want[1], got[1], 1e-9)
	assert.False(t, math.IsNaN(got[1]))
}
