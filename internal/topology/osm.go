package topology

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"

	"github.com/GoSim-25-26J-441/traffic-sim/internal/graph"
	"github.com/GoSim-25-26J-441/traffic-sim/pkg/config"
)

// OSMScanner is the part of the osmxml and osmpbf scanners the loader uses
type OSMScanner interface {
	Scan() bool
	Close() error
	Err() error
	Object() osm.Object
}

// ignoredHighways are highway values that do not carry traffic yet
var ignoredHighways = map[string]struct{}{
	"proposed":     {},
	"construction": {},
	"abandoned":    {},
	"razed":        {},
}

// LoadOSM reads an OSM extract from path. format is config.FormatOSM for XML
// or config.FormatPBF.
func LoadOSM(ctx context.Context, path, format string, opts ...graph.Option) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open OSM file '%s'", path)
	}
	defer f.Close()

	g, err := ReadOSM(ctx, f, format, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "can't load OSM file '%s'", path)
	}
	return g, nil
}

// ReadOSM builds a graph from the highway ways of an OSM extract. Every pair
// of consecutive way nodes becomes an undirected edge; one-way tags are
// ignored. Node ids are the OSM ids in decimal and coordinates are Web
// Mercator kilometres, so edge distances are in (latitude-scaled) km.
//
// The reader is scanned twice, ways first, so it must be seekable.
func ReadOSM(ctx context.Context, r io.ReadSeeker, format string, opts ...graph.Option) (*graph.Graph, error) {
	var ways [][]osm.NodeID
	used := make(map[osm.NodeID]struct{})
	{
		scanner, err := newOSMScanner(ctx, r, format)
		if err != nil {
			return nil, err
		}
		for scanner.Scan() {
			obj := scanner.Object()
			if obj.ObjectID().Type() != "way" {
				continue
			}
			way := obj.(*osm.Way)
			highway := way.Tags.Find("highway")
			if highway == "" {
				continue
			}
			if _, skip := ignoredHighways[highway]; skip {
				continue
			}
			ids := make([]osm.NodeID, 0, len(way.Nodes))
			for _, wn := range way.Nodes {
				ids = append(ids, wn.ID)
				used[wn.ID] = struct{}{}
			}
			ways = append(ways, ids)
		}
		err = scanner.Err()
		scanner.Close()
		if err != nil {
			return nil, errors.Wrap(err, "can't scan ways")
		}
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "can't repeat seeking after ways scanning")
	}

	g := graph.New(opts...)
	{
		scanner, err := newOSMScanner(ctx, r, format)
		if err != nil {
			return nil, err
		}
		for scanner.Scan() {
			obj := scanner.Object()
			if obj.ObjectID().Type() != "node" {
				continue
			}
			node := obj.(*osm.Node)
			if _, ok := used[node.ID]; !ok {
				continue
			}
			delete(used, node.ID)
			p := project.WGS84.ToMercator(orb.Point{node.Lon, node.Lat})
			if _, err := g.AddNode(nodeID(node.ID), p[0]/1000, p[1]/1000); err != nil {
				scanner.Close()
				return nil, err
			}
		}
		err = scanner.Err()
		scanner.Close()
		if err != nil {
			return nil, errors.Wrap(err, "can't scan nodes")
		}
	}

	// Extracts clipped at a bounding box reference nodes they do not contain;
	// segments touching those are dropped.
	for _, ids := range ways {
		for i := 1; i < len(ids); i++ {
			a, b := nodeID(ids[i-1]), nodeID(ids[i])
			if a == b {
				continue
			}
			if _, ok := g.Lookup(a); !ok {
				continue
			}
			if _, ok := g.Lookup(b); !ok {
				continue
			}
			if _, err := g.AddEdge(a, b); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

func newOSMScanner(ctx context.Context, r io.Reader, format string) (OSMScanner, error) {
	switch format {
	case config.FormatOSM:
		return osmxml.New(ctx, r), nil
	case config.FormatPBF:
		return osmpbf.New(ctx, r, 4), nil
	default:
		return nil, errors.Errorf("OSM format '%s' is not handled", format)
	}
}

func nodeID(id osm.NodeID) string {
	return strconv.FormatInt(int64(id), 10)
}
