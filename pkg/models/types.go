// Package models holds the transport-neutral views of simulator state that
// the HTTP and gRPC surfaces, the CLI and the metrics collector share.
package models

import "math"

// RequestStatus represents the lifecycle state of a routing request
type RequestStatus string

const (
	RequestStatusPending RequestStatus = "pending"
	RequestStatusRouted  RequestStatus = "routed"
	RequestStatusNoPath  RequestStatus = "no_path"
	RequestStatusArrived RequestStatus = "arrived"
)

// RequestView is a snapshot of one request. EndTime is nil for requests that
// found no path and therefore never finish.
type RequestView struct {
	ID          string        `json:"id"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	Status      RequestStatus `json:"status"`
	StartTime   float64       `json:"start_time"`
	TimeCost    float64       `json:"time_cost"`
	EndTime     *float64      `json:"end_time"`
	Path        []string      `json:"path,omitempty"`
	Edges       []EdgeView    `json:"edges,omitempty"`
}

// EdgeView is a snapshot of one road segment and its congestion
type EdgeView struct {
	Index    int     `json:"index"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Distance float64 `json:"distance"`
	Traffic  int     `json:"traffic"`
	Weight   float64 `json:"weight"`
}

// AdmissionResult is returned for every admitted request
type AdmissionResult struct {
	Request RequestView `json:"request"`
	// Evicted lists the ids of requests that arrived before this admission.
	Evicted          []string `json:"evicted,omitempty"`
	FreeFlowTimeCost *float64 `json:"free_flow_time_cost,omitempty"`
	CongestionDelay  *float64 `json:"congestion_delay,omitempty"`
	Active           int      `json:"active"`
}

// Summary contains aggregated statistics for a simulator
type Summary struct {
	Clock        float64 `json:"clock"`
	Nodes        int     `json:"nodes"`
	Edges        int     `json:"edges"`
	Admitted     int64   `json:"admitted"`
	Routed       int64   `json:"routed"`
	NoPath       int64   `json:"no_path"`
	Arrived      int64   `json:"arrived"`
	Active       int     `json:"active"`
	InFlight     int     `json:"in_flight"`
	TotalTraffic int     `json:"total_traffic"`

	TimeCostMean        float64 `json:"time_cost_mean"`
	TimeCostP50         float64 `json:"time_cost_p50"`
	TimeCostP95         float64 `json:"time_cost_p95"`
	CongestionDelayMean float64 `json:"congestion_delay_mean"`
}

// MetricPoint represents a single metric data point at a simulated time
type MetricPoint struct {
	Time   float64           `json:"time"`
	Name   string            `json:"name"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// MetricsSummary represents a summary of collected metrics
type MetricsSummary struct {
	StartTime    float64                 `json:"start_time"`
	EndTime      float64                 `json:"end_time"`
	Metrics      map[string][]float64    `json:"metrics"` // metric name -> values
	Aggregations map[string]*Aggregation `json:"aggregations,omitempty"`
}

// Aggregation represents aggregated statistics for a metric
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// FiniteOrNil returns a pointer to v, or nil when v is infinite or NaN.
// encoding/json cannot represent either.
func FiniteOrNil(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
