// Package metrics records simulator observations, both as an in-process time
// series keyed by simulated time and as Prometheus instruments.
package metrics

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/GoSim-25-26J-441/traffic-sim/pkg/models"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/utils"
)

// Collector collects time-series metrics during simulation. Times are
// simulated time units, not wall clock.
type Collector struct {
	mu sync.RWMutex

	startTime float64
	endTime   float64
	seen      bool

	// Time-series data: metric name -> labels -> []MetricPoint
	timeSeries map[string]map[string][]*models.MetricPoint
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		timeSeries: make(map[string]map[string][]*models.MetricPoint),
	}
}

// Record records a metric value at a simulated time
func (c *Collector) Record(name string, value float64, at float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.seen {
		c.startTime = at
		c.seen = true
	}
	c.startTime = math.Min(c.startTime, at)
	c.endTime = math.Max(c.endTime, at)

	key := labelKey(labels)
	if c.timeSeries[name] == nil {
		c.timeSeries[name] = make(map[string][]*models.MetricPoint)
	}

	point := &models.MetricPoint{
		Time:   at,
		Name:   name,
		Value:  value,
		Labels: copyLabels(labels),
	}
	c.timeSeries[name][key] = append(c.timeSeries[name][key], point)
}

// GetTimeSeries returns all time-series points for a metric
func (c *Collector) GetTimeSeries(name string, labels map[string]string) []*models.MetricPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.getPointsUnsafe(name, labelKey(labels))
	if points == nil {
		return nil
	}

	// Return a copy
	result := make([]*models.MetricPoint, len(points))
	for i, p := range points {
		result[i] = &models.MetricPoint{
			Time:   p.Time,
			Name:   p.Name,
			Value:  p.Value,
			Labels: copyLabels(p.Labels),
		}
	}
	return result
}

// GetAggregation calculates aggregated statistics for one label set of a metric
func (c *Collector) GetAggregation(name string, labels map[string]string) *models.Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return calculateAggregation(c.getPointsUnsafe(name, labelKey(labels)))
}

// GetSummary returns every metric's values across all label sets
func (c *Collector) GetSummary() *models.MetricsSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := &models.MetricsSummary{
		StartTime:    c.startTime,
		EndTime:      c.endTime,
		Metrics:      make(map[string][]float64),
		Aggregations: make(map[string]*models.Aggregation),
	}

	for name, labelMap := range c.timeSeries {
		var all []*models.MetricPoint
		for _, points := range labelMap {
			all = append(all, points...)
		}
		sort.SliceStable(all, func(i, j int) bool { return all[i].Time < all[j].Time })

		values := make([]float64, len(all))
		for i, p := range all {
			values[i] = p.Value
		}
		summary.Metrics[name] = values
		if agg := calculateAggregation(all); agg != nil {
			summary.Aggregations[name] = agg
		}
	}

	return summary
}

// GetMetricNames returns all metric names that have been collected, sorted
func (c *Collector) GetMetricNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.timeSeries))
	for name := range c.timeSeries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetLabelsForMetric returns every label set recorded for a metric, ordered
// by label key
func (c *Collector) GetLabelsForMetric(name string) []map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	labelMap := c.timeSeries[name]
	keys := make([]string, 0, len(labelMap))
	for key := range labelMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]map[string]string, 0, len(keys))
	for _, key := range keys {
		points := labelMap[key]
		if len(points) == 0 {
			continue
		}
		result = append(result, copyLabels(points[0].Labels))
	}
	return result
}

// Clear clears all collected metrics
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timeSeries = make(map[string]map[string][]*models.MetricPoint)
	c.startTime, c.endTime, c.seen = 0, 0, false
}

// getPointsUnsafe returns points without locking (caller must hold lock)
func (c *Collector) getPointsUnsafe(name, key string) []*models.MetricPoint {
	if c.timeSeries[name] == nil {
		return nil
	}
	return c.timeSeries[name][key]
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

func calculateAggregation(points []*models.MetricPoint) *models.Aggregation {
	if len(points) == 0 {
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	sort.Float64s(values)

	return &models.Aggregation{
		Count: int64(len(values)),
		Sum:   utils.Sum(values),
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  utils.Mean(values),
		P50:   utils.P50(values),
		P95:   utils.P95(values),
		P99:   utils.P99(values),
	}
}
