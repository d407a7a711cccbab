// Package topology builds road networks from their declarations: inline
// YAML, the whitespace separated text stream, and OpenStreetMap extracts.
package topology

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/config"
)

// Scenario is a loaded network plus any admissions that came with it
type Scenario struct {
	Graph      *graph.Graph
	Admissions []config.Admission
}

// Build creates a graph from an inline topology. Edges with an explicit
// length keep it; the others use the distance between their endpoints.
func Build(t config.Topology, opts ...graph.Option) (*graph.Graph, error) {
	g := graph.New(opts...)
	for _, n := range t.Nodes {
		if _, err := g.AddNode(n.ID, n.X, n.Y); err != nil {
			return nil, err
		}
	}
	for _, e := range t.Edges {
		var err error
		if e.Length != nil {
			_, err = g.AddEdgeWithLength(e.From, e.To, *e.Length)
		} else {
			_, err = g.AddEdge(e.From, e.To)
		}
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Load builds the scenario a topology section describes, reading its file
// when one is named.
func Load(ctx context.Context, t config.Topology, opts ...graph.Option) (*Scenario, error) {
	if t.File == "" {
		g, err := Build(t, opts...)
		if err != nil {
			return nil, err
		}
		return &Scenario{Graph: g}, nil
	}

	format := t.Format
	if format == "" {
		format = config.FormatFromPath(t.File)
	}

	switch format {
	case config.FormatText:
		f, err := os.Open(t.File)
		if err != nil {
			return nil, errors.Wrapf(err, "can't open topology file '%s'", t.File)
		}
		defer f.Close()
		sc, err := ReadText(f, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "can't read topology file '%s'", t.File)
		}
		return sc, nil
	case config.FormatOSM, config.FormatPBF:
		g, err := LoadOSM(ctx, t.File, format, opts...)
		if err != nil {
			return nil, err
		}
		return &Scenario{Graph: g}, nil
	default:
		return nil, errors.Errorf("topology format '%s' is not handled", format)
	}
}
