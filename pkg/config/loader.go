package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if f := cfg.Topology.File; f != "" && !filepath.IsAbs(f) {
		cfg.Topology.File = filepath.Join(filepath.Dir(path), f)
	}
	return cfg, nil
}

// FormatFromPath infers a topology format from a file extension
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".osm", ".xml":
		return FormatOSM
	case ".pbf":
		return FormatPBF
	default:
		return FormatText
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if cfg.Topology.File != "" && cfg.Topology.Format == "" {
		cfg.Topology.Format = FormatFromPath(cfg.Topology.File)
	}
	if cfg.Workload != nil && cfg.Workload.Arrival == "" {
		cfg.Workload.Arrival = ArrivalPoisson
	}
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if err := validateCongestion(cfg.Congestion); err != nil {
		return fmt.Errorf("congestion validation failed: %w", err)
	}

	known, err := validateTopology(&cfg.Topology)
	if err != nil {
		return fmt.Errorf("topology validation failed: %w", err)
	}

	for i, a := range cfg.Admissions {
		if err := validateAdmission(a, known); err != nil {
			return fmt.Errorf("admission %d: %w", i, err)
		}
	}

	if cfg.Workload != nil {
		if err := validateWorkload(cfg.Workload); err != nil {
			return fmt.Errorf("workload validation failed: %w", err)
		}
	}

	if cfg.Server != nil && cfg.Server.AdmissionRateLimit < 0 {
		return fmt.Errorf("server validation failed: admission_rate_limit cannot be negative")
	}

	return nil
}

func validateCongestion(c Congestion) error {
	if k := c.Coefficient; k != nil && (!finite(*k) || *k < 0) {
		return fmt.Errorf("coefficient must be a non-negative number, got %v", *k)
	}
	if s := c.TimeScale; s != nil && (!finite(*s) || *s <= 0) {
		return fmt.Errorf("time_scale must be positive, got %v", *s)
	}
	return nil
}

// validateTopology checks the inline graph and returns its node ids, or nil
// when the topology comes from a file and ids are not known yet.
func validateTopology(t *Topology) (map[string]bool, error) {
	inline := len(t.Nodes) > 0 || len(t.Edges) > 0
	if t.File != "" {
		if inline {
			return nil, fmt.Errorf("topology cannot declare both file and inline nodes/edges")
		}
		switch t.Format {
		case FormatText, FormatOSM, FormatPBF:
		default:
			return nil, fmt.Errorf("invalid format: %s (must be text, osm, or pbf)", t.Format)
		}
		return nil, nil
	}
	if len(t.Nodes) == 0 {
		return nil, fmt.Errorf("topology must declare nodes or a file")
	}

	ids := make(map[string]bool, len(t.Nodes))
	for _, n := range t.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node id cannot be empty")
		}
		if ids[n.ID] {
			return nil, fmt.Errorf("duplicate node id: %s", n.ID)
		}
		if !finite(n.X) || !finite(n.Y) {
			return nil, fmt.Errorf("node %s: coordinates must be finite", n.ID)
		}
		ids[n.ID] = true
	}
	for i, e := range t.Edges {
		if !ids[e.From] {
			return nil, fmt.Errorf("edge %d references unknown node: %s", i, e.From)
		}
		if !ids[e.To] {
			return nil, fmt.Errorf("edge %d references unknown node: %s", i, e.To)
		}
		if e.Length != nil && (!finite(*e.Length) || *e.Length < 0) {
			return nil, fmt.Errorf("edge %d (%s-%s): length must be non-negative", i, e.From, e.To)
		}
	}
	return ids, nil
}

func validateAdmission(a Admission, known map[string]bool) error {
	if !finite(a.Time) || a.Time < 0 {
		return fmt.Errorf("time must be a non-negative number, got %v", a.Time)
	}
	if a.Source == "" || a.Destination == "" {
		return fmt.Errorf("source and destination are required")
	}
	if known != nil {
		if !known[a.Source] {
			return fmt.Errorf("unknown source: %s", a.Source)
		}
		if !known[a.Destination] {
			return fmt.Errorf("unknown destination: %s", a.Destination)
		}
	}
	return nil
}

func validateWorkload(w *Workload) error {
	switch w.Arrival {
	case ArrivalPoisson, ArrivalUniform, ArrivalConstant:
	default:
		return fmt.Errorf("invalid arrival: %s (must be poisson, uniform, or constant)", w.Arrival)
	}
	if !finite(w.Rate) || w.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %v", w.Rate)
	}
	if !finite(w.Start) || w.Start < 0 {
		return fmt.Errorf("start cannot be negative")
	}
	if !finite(w.Duration) || w.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", w.Duration)
	}
	return nil
}
