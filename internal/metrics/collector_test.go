package metrics

import (
	"io"
	"testing"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/engine"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/internal/routing"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/logger"
)

func TestCollectorRecordAndGetTimeSeries(t *testing.T) {
	c := NewCollector()
	c.Record("test_metric", 10.0, 0, nil)
	c.Record("test_metric", 20.0, 5, nil)
	c.Record("test_metric", 30.0, 12.5, nil)

	points := c.GetTimeSeries("test_metric", nil)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Value != 10.0 || points[2].Value != 30.0 {
		t.Fatalf("unexpected values: %v, %v", points[0].Value, points[2].Value)
	}
	if points[2].Time != 12.5 {
		t.Fatalf("expected time 12.5, got %v", points[2].Time)
	}

	points[0].Value = 99
	if c.GetTimeSeries("test_metric", nil)[0].Value != 10.0 {
		t.Fatal("GetTimeSeries should return copies")
	}
}

func TestCollectorLabelsAreIndependent(t *testing.T) {
	c := NewCollector()
	routed := map[string]string{"outcome": "routed"}
	noPath := map[string]string{"outcome": "no_path"}

	c.Record(MetricAdmissions, 1, 0, routed)
	c.Record(MetricAdmissions, 1, 1, routed)
	c.Record(MetricAdmissions, 1, 2, noPath)

	if got := len(c.GetTimeSeries(MetricAdmissions, routed)); got != 2 {
		t.Errorf("expected 2 routed points, got %d", got)
	}
	if got := len(c.GetTimeSeries(MetricAdmissions, noPath)); got != 1 {
		t.Errorf("expected 1 no_path point, got %d", got)
	}
	if c.GetTimeSeries(MetricAdmissions, nil) != nil {
		t.Error("unlabelled series should be empty")
	}
	if c.GetTimeSeries("missing", nil) != nil {
		t.Error("unknown metric should return nil")
	}
}

func TestCollectorGetLabelsForMetric(t *testing.T) {
	c := NewCollector()
	c.Record(MetricAdmissions, 1, 0, OutcomeLabels("routed"))
	c.Record(MetricAdmissions, 1, 1, OutcomeLabels("no_path"))
	c.Record(MetricAdmissions, 1, 2, OutcomeLabels("routed"))
	c.Record(MetricTotalTraffic, 3, 2, nil)

	labels := c.GetLabelsForMetric(MetricAdmissions)
	if len(labels) != 2 {
		t.Fatalf("expected 2 label sets, got %d", len(labels))
	}
	if labels[0]["outcome"] != "no_path" || labels[1]["outcome"] != "routed" {
		t.Fatalf("unexpected label order: %v", labels)
	}

	plain := c.GetLabelsForMetric(MetricTotalTraffic)
	if len(plain) != 1 || len(plain[0]) != 0 {
		t.Fatalf("expected one empty label set, got %v", plain)
	}
	if got := c.GetLabelsForMetric("missing"); len(got) != 0 {
		t.Fatalf("expected no label sets, got %v", got)
	}
}

func TestLabelKeyOrderIndependent(t *testing.T) {
	a := labelKey(map[string]string{"a": "1", "b": "2"})
	b := labelKey(map[string]string{"b": "2", "a": "1"})
	if a != b {
		t.Errorf("label keys differ: %q vs %q", a, b)
	}
	if labelKey(nil) != "" {
		t.Error("empty labels should produce empty key")
	}
}

func TestCollectorAggregation(t *testing.T) {
	c := NewCollector()
	for i, v := range []float64{240, 312, 360, 120} {
		c.Record(MetricTimeCost, v, float64(i), nil)
	}

	agg := c.GetAggregation(MetricTimeCost, nil)
	if agg == nil {
		t.Fatal("expected aggregation")
	}
	if agg.Count != 4 || agg.Sum != 1032 || agg.Min != 120 || agg.Max != 360 {
		t.Errorf("unexpected aggregation: %+v", agg)
	}
	if agg.Mean != 258 {
		t.Errorf("expected mean 258, got %v", agg.Mean)
	}
	if agg.P50 != 276 {
		t.Errorf("expected p50 276, got %v", agg.P50)
	}
	if c.GetAggregation("missing", nil) != nil {
		t.Error("missing metric should have no aggregation")
	}
}

func TestCollectorSummaryAndClear(t *testing.T) {
	c := NewCollector()
	c.Record(MetricActiveRequests, 2, 30, nil)
	c.Record(MetricActiveRequests, 1, 10, map[string]string{"x": "y"})
	c.Record(MetricTotalTraffic, 4, 20, nil)

	s := c.GetSummary()
	if s.StartTime != 10 || s.EndTime != 30 {
		t.Errorf("expected span [10, 30], got [%v, %v]", s.StartTime, s.EndTime)
	}
	active := s.Metrics[MetricActiveRequests]
	if len(active) != 2 || active[0] != 1 || active[1] != 2 {
		t.Errorf("expected values in time order [1 2], got %v", active)
	}
	if s.Aggregations[MetricTotalTraffic].Count != 1 {
		t.Errorf("unexpected traffic aggregation: %+v", s.Aggregations[MetricTotalTraffic])
	}

	names := c.GetMetricNames()
	if len(names) != 2 || names[0] != MetricActiveRequests {
		t.Errorf("unexpected names: %v", names)
	}

	c.Clear()
	if len(c.GetMetricNames()) != 0 {
		t.Error("Clear should remove all series")
	}
	if s := c.GetSummary(); s.StartTime != 0 || s.EndTime != 0 {
		t.Errorf("Clear should reset the span, got [%v, %v]", s.StartTime, s.EndTime)
	}
}

func detour(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for i, id := range []string{"A", "B", "C"} {
		if _, err := g.AddNode(id, float64(i), 0); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := g.AddNode("D", 9, 9); err != nil {
		t.Fatal(err)
	}
	for _, e := range [][2]string{{"A", "B"}, {"B", "C"}} {
		if _, err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := g.AddEdgeWithLength("A", "C", 3); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestCollectorObservesSimulator(t *testing.T) {
	g := detour(t)
	ff, err := routing.NewFreeFlow(g, routing.DefaultTimeScale)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCollector()
	sim := engine.NewSimulator(g, nil,
		engine.WithLogger(logger.New("error", io.Discard)),
		engine.WithFreeFlow(ff),
		engine.WithObserver(c))

	mustAdmit := func(at float64, src, dst string) {
		if _, err := sim.Admit(at, src, dst); err != nil {
			t.Fatalf("admit %s->%s: %v", src, dst, err)
		}
	}
	mustAdmit(0, "A", "C")
	mustAdmit(10, "A", "C")
	mustAdmit(20, "A", "D")
	mustAdmit(1000, "B", "C")

	routed := c.GetTimeSeries(MetricAdmissions, OutcomeLabels("routed"))
	if len(routed) != 3 {
		t.Errorf("expected 3 routed admissions, got %d", len(routed))
	}
	if got := len(c.GetTimeSeries(MetricAdmissions, OutcomeLabels("no_path"))); got != 1 {
		t.Errorf("expected 1 no_path admission, got %d", got)
	}

	evictions := c.GetTimeSeries(MetricEvictions, nil)
	if len(evictions) != 1 || evictions[0].Value != 2 || evictions[0].Time != 1000 {
		t.Errorf("expected one eviction point of 2 at t=1000, got %+v", evictions)
	}

	delays := c.GetTimeSeries(MetricCongestionDelay, nil)
	if len(delays) != 3 {
		t.Fatalf("expected 3 delay points, got %d", len(delays))
	}
	if d := delays[1].Value; d < 71.999 || d > 72.001 {
		t.Errorf("expected delay 72 for the second request, got %v", d)
	}

	traffic := c.GetTimeSeries(MetricTotalTraffic, nil)
	if last := traffic[len(traffic)-1].Value; last != 1 {
		t.Errorf("expected traffic 1 after the last admission, got %v", last)
	}
}
