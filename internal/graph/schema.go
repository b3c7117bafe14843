package graph

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Sentinel errors returned by the graph codec.
var (
	ErrEmptyGraph   = errors.New("graph: no nodes")
	ErrInvalidGraph = errors.New("graph: invalid structure")
)

// Attrs is a mapping from attribute name to value.
type Attrs map[string]Value

// Edge is a directed edge to the node whose identifier is Sink.
type Edge struct {
	Sink  uint64 `json:"sink"`
	Attrs Attrs  `json:"attrs"`
}

// Node is one structural element of a graph. Before merge, ID equals the
// node's position in its graph; after merge it is globally unique within a
// run.
type Node struct {
	ID    uint64 `json:"id"`
	Edges []Edge `json:"edges"`
	Attrs Attrs  `json:"attrs"`
}

// Attr returns the named attribute, or null if it is not set.
func (n *Node) Attr(name string) Value {
	return n.Attrs[name]
}

// AddEdge appends an edge to sink, merging attributes into an existing edge
// to the same sink.
func (n *Node) AddEdge(sink uint64, attrs Attrs) {
	for i := range n.Edges {
		if n.Edges[i].Sink == sink {
			if n.Edges[i].Attrs == nil {
				n.Edges[i].Attrs = Attrs{}
			}
			for k, v := range attrs {
				n.Edges[i].Attrs[k] = v
			}
			return
		}
	}
	if attrs == nil {
		attrs = Attrs{}
	}
	n.Edges = append(n.Edges, Edge{Sink: sink, Attrs: attrs})
}

// ParentKind is the "kind" of back-edges from a node to its structural
// parent.
const ParentKind = "_parent"

// IsLeaf reports whether n has no outgoing edges other than back-edges to
// its parent.
func (n *Node) IsLeaf() bool {
	for _, e := range n.Edges {
		if kind, _ := e.Attrs["kind"].AsString(); kind != ParentKind {
			return false
		}
	}
	return true
}

// Graph is an ordered collection of nodes produced from one matched
// sub-tree. The node at index 0 is the root.
type Graph struct {
	nodes []*Node
}

// New returns an empty graph.
func New() *Graph { return &Graph{} }

// AddNode appends a node whose ID is its local index and returns it.
func (g *Graph) AddNode() *Node {
	n := &Node{ID: uint64(len(g.nodes)), Edges: []Edge{}, Attrs: Attrs{}}
	g.nodes = append(g.nodes, n)
	return n
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the nodes in root-first order. The slice must not be
// modified.
func (g *Graph) Nodes() []*Node { return g.nodes }

// At returns the node at local index i.
func (g *Graph) At(i int) *Node { return g.nodes[i] }

// Root returns the root node, or nil for an empty graph.
func (g *Graph) Root() *Node {
	if len(g.nodes) == 0 {
		return nil
	}
	return g.nodes[0]
}

// Leaves returns the nodes for which IsLeaf holds.
func (g *Graph) Leaves() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.IsLeaf() {
			out = append(out, n)
		}
	}
	return out
}

// IDs returns the set of node identifiers in g.
func (g *Graph) IDs() *roaring64.Bitmap {
	bm := roaring64.New()
	for _, n := range g.nodes {
		bm.Add(n.ID)
	}
	return bm
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, n := range g.nodes {
		total += len(n.Edges)
	}
	return total
}

// Validate checks that g is in local form: node i has ID i and every sink
// addresses a node of g.
func (g *Graph) Validate() error {
	for i, n := range g.nodes {
		if n.ID != uint64(i) {
			return fmt.Errorf("%w: node %d has id %d", ErrInvalidGraph, i, n.ID)
		}
		for _, e := range n.Edges {
			if e.Sink >= uint64(len(g.nodes)) {
				return fmt.Errorf("%w: node %d has edge to %d of %d nodes", ErrInvalidGraph, i, e.Sink, len(g.nodes))
			}
		}
	}
	return nil
}
