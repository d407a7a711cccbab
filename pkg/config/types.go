package config

import "math"

const (
	// DefaultCongestionCoefficient is k in weight = distance*(1+k*traffic)
	DefaultCongestionCoefficient = 0.3

	// DefaultTimeScale converts path weight into time units
	DefaultTimeScale = 120.0
)

// Topology file formats
const (
	FormatText = "text"
	FormatOSM  = "osm"
	FormatPBF  = "pbf"
)

// Arrival processes understood by the workload generator
const (
	ArrivalPoisson  = "poisson"
	ArrivalUniform  = "uniform"
	ArrivalConstant = "constant"
)

// Config represents the main simulation configuration
type Config struct {
	LogLevel         string      `yaml:"log_level"`
	LogFormat        string      `yaml:"log_format,omitempty"`
	Congestion       Congestion  `yaml:"congestion"`
	FreeFlowBaseline bool        `yaml:"freeflow_baseline"`
	Topology         Topology    `yaml:"topology"`
	Admissions       []Admission `yaml:"admissions,omitempty"`
	Workload         *Workload   `yaml:"workload,omitempty"`
	Server           *Server     `yaml:"server,omitempty"`
}

// Congestion holds the weight model parameters. Unset fields take the
// package defaults.
type Congestion struct {
	Coefficient *float64 `yaml:"coefficient,omitempty"`
	TimeScale   *float64 `yaml:"time_scale,omitempty"`
}

// CoefficientOrDefault returns the configured coefficient or the default
func (c Congestion) CoefficientOrDefault() float64 {
	if c.Coefficient == nil {
		return DefaultCongestionCoefficient
	}
	return *c.Coefficient
}

// TimeScaleOrDefault returns the configured time scale or the default
func (c Congestion) TimeScaleOrDefault() float64 {
	if c.TimeScale == nil {
		return DefaultTimeScale
	}
	return *c.TimeScale
}

// Topology declares the road network, inline or through a file
type Topology struct {
	Nodes  []Node `yaml:"nodes,omitempty"`
	Edges  []Edge `yaml:"edges,omitempty"`
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format,omitempty"` // text, osm or pbf
}

// Node is an intersection
type Node struct {
	ID string  `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

// Edge is an undirected road. Without Length the Euclidean distance between
// the endpoints is used.
type Edge struct {
	From   string   `yaml:"from"`
	To     string   `yaml:"to"`
	Length *float64 `yaml:"length,omitempty"`
}

// Admission is a scripted request
type Admission struct {
	Time        float64 `yaml:"time"`
	Source      string  `yaml:"source"`
	Destination string  `yaml:"destination"`
}

// Workload describes synthetic admissions
type Workload struct {
	Seed     int64   `yaml:"seed"`
	Arrival  string  `yaml:"arrival"` // poisson, uniform or constant
	Rate     float64 `yaml:"rate"`    // admissions per time unit
	Start    float64 `yaml:"start"`
	Duration float64 `yaml:"duration"`
}

// Server holds listen addresses for the daemon
type Server struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	// AdmissionRateLimit caps admissions per second per client; 0 disables it
	AdmissionRateLimit int `yaml:"admission_rate_limit,omitempty"`
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
