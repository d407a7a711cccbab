// Package graph holds the road network: an arena of nodes and undirected
// edges with static topology and mutable per-edge congestion.
//
// Nodes and edges are addressed by dense indices into slices owned by the
// Graph. Node identity is the string id given at load time; the index is
// only a handle. Nothing in this package carries per-search state.
package graph

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultCongestionCoefficient is the weight penalty per unit of traffic.
const DefaultCongestionCoefficient = 0.3

// NodeIndex addresses a node inside a Graph.
type NodeIndex int

// EdgeIndex addresses an edge inside a Graph.
type EdgeIndex int

// NoNode and NoEdge mark an absent back-reference.
const (
	NoNode NodeIndex = -1
	NoEdge EdgeIndex = -1
)

// Node is an intersection. Its fields never change after AddNode.
type Node struct {
	ID string
	X  float64
	Y  float64
}

// Point returns the node coordinate
func (n Node) Point() orb.Point {
	return orb.Point{n.X, n.Y}
}

// Edge is an undirected road segment between A and B.
type Edge struct {
	A        NodeIndex
	B        NodeIndex
	Distance float64
	Traffic  int
	Weight   float64
}

// Other returns the endpoint opposite to n. For a self-loop it returns n.
func (e Edge) Other(n NodeIndex) NodeIndex {
	if e.A == n {
		return e.B
	}
	return e.A
}

// Graph owns the node arena, the edge arena and the adjacency lists.
type Graph struct {
	nodes []Node
	edges []Edge
	adj   [][]EdgeIndex
	byID  map[string]NodeIndex
	k     float64
}

// Option configures a Graph
type Option func(*Graph)

// WithCongestionCoefficient sets k in weight = distance * (1 + k*traffic).
func WithCongestionCoefficient(k float64) Option {
	return func(g *Graph) {
		g.k = k
	}
}

// New creates an empty graph
func New(opts ...Option) *Graph {
	g := &Graph{
		byID: make(map[string]NodeIndex),
		k:    DefaultCongestionCoefficient,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode registers a node. Adding an id twice is a ConfigError.
func (g *Graph) AddNode(id string, x, y float64) (NodeIndex, error) {
	if _, exists := g.byID[id]; exists {
		return NoNode, &ConfigError{Op: "add node", ID: id, Err: ErrDuplicateNode}
	}
	idx := NodeIndex(len(g.nodes))
	g.nodes = append(g.nodes, Node{ID: id, X: x, Y: y})
	g.adj = append(g.adj, nil)
	g.byID[id] = idx
	return idx, nil
}

// AddEdge connects two existing nodes. The Euclidean distance is computed
// once here; the edge starts with no traffic so its weight equals its distance.
func (g *Graph) AddEdge(id1, id2 string) (EdgeIndex, error) {
	a, ok := g.byID[id1]
	if !ok {
		return NoEdge, &ConfigError{Op: "add edge", ID: id1, Err: ErrUnknownNode}
	}
	b, ok := g.byID[id2]
	if !ok {
		return NoEdge, &ConfigError{Op: "add edge", ID: id2, Err: ErrUnknownNode}
	}

	return g.link(a, b, planar.Distance(g.nodes[a].Point(), g.nodes[b].Point())), nil
}

// AddEdgeWithLength connects two existing nodes with an explicit road length
// instead of the straight-line distance. Curved roads are longer than the
// segment between their endpoints.
func (g *Graph) AddEdgeWithLength(id1, id2 string, length float64) (EdgeIndex, error) {
	a, ok := g.byID[id1]
	if !ok {
		return NoEdge, &ConfigError{Op: "add edge", ID: id1, Err: ErrUnknownNode}
	}
	b, ok := g.byID[id2]
	if !ok {
		return NoEdge, &ConfigError{Op: "add edge", ID: id2, Err: ErrUnknownNode}
	}
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return NoEdge, &ConfigError{Op: "add edge", ID: id1 + "-" + id2, Err: ErrInvalidLength}
	}
	return g.link(a, b, length), nil
}

func (g *Graph) link(a, b NodeIndex, dist float64) EdgeIndex {
	idx := EdgeIndex(len(g.edges))
	g.edges = append(g.edges, Edge{
		A:        a,
		B:        b,
		Distance: dist,
		Weight:   dist,
	})
	g.adj[a] = append(g.adj[a], idx)
	if b != a {
		g.adj[b] = append(g.adj[b], idx)
	}
	return idx
}

// Lookup resolves a node id
func (g *Graph) Lookup(id string) (NodeIndex, bool) {
	idx, ok := g.byID[id]
	return idx, ok
}

// HasNode reports whether idx is a valid node index
func (g *Graph) HasNode(idx NodeIndex) bool {
	return idx >= 0 && int(idx) < len(g.nodes)
}

// Node returns the node at idx. It panics if idx is out of range, like a slice.
func (g *Graph) Node(idx NodeIndex) Node {
	return g.nodes[idx]
}

// Edge returns a copy of the edge at idx.
func (g *Graph) Edge(idx EdgeIndex) Edge {
	return g.edges[idx]
}

// Weight returns the current congested weight of an edge
func (g *Graph) Weight(idx EdgeIndex) float64 {
	return g.edges[idx].Weight
}

// Incident returns the edges touching idx in insertion order.
// The returned slice must not be modified.
func (g *Graph) Incident(idx NodeIndex) []EdgeIndex {
	return g.adj[idx]
}

// NumNodes returns the number of nodes
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of edges
func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// Nodes returns a copy of all nodes in index order
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of all edges in index order
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeIDs returns every node id in index order
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	return ids
}

// CongestionCoefficient returns k
func (g *Graph) CongestionCoefficient() float64 {
	return g.k
}
