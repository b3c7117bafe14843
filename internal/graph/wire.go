package graph

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Encode serializes a local graph into its wire form: a JSON array of
// {"id","edges","attrs"} objects in root-first order.
func Encode(g *Graph) ([]byte, error) {
	if g.Len() == 0 {
		return nil, ErrEmptyGraph
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(g.nodes)
}

// Decode parses a wire-form graph and validates its local structure.
func Decode(data []byte) (*Graph, error) {
	var nodes []*Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if len(nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	for _, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: null node", ErrInvalidGraph)
		}
		if n.Edges == nil {
			n.Edges = []Edge{}
		}
		if n.Attrs == nil {
			n.Attrs = Attrs{}
		}
	}
	g := &Graph{nodes: nodes}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MarshalJSON encodes g in wire form, whatever its current identifiers.
func (g *Graph) MarshalJSON() ([]byte, error) {
	if g.nodes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g.nodes)
}

// UnmarshalJSON decodes a graph without local-form validation, so merged
// graphs round-trip.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var nodes []*Node
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}
	g.nodes = nodes
	return nil
}

// Allocator hands out contiguous identifier ranges. One Allocator is scoped
// to a single run.
type Allocator struct {
	next atomic.Uint64
}

// NewAllocator returns an allocator whose first reservation starts at start.
func NewAllocator(start uint64) *Allocator {
	a := &Allocator{}
	a.next.Store(start)
	return a
}

// Reserve claims n consecutive identifiers and returns the first.
func (a *Allocator) Reserve(n int) uint64 {
	end := a.next.Add(uint64(n))
	return end - uint64(n)
}

// Next returns the identifier the next reservation will start at.
func (a *Allocator) Next() uint64 { return a.next.Load() }

// Rebase shifts a local graph into global space: node k gets base+k and
// every edge sink is shifted by base.
func (g *Graph) Rebase(base uint64) {
	for _, n := range g.nodes {
		n.ID += base
		for i := range n.Edges {
			n.Edges[i].Sink += base
		}
	}
}

// Merge decodes a wire-form graph, reserves a contiguous identifier range of
// its size from a, and rebases it into that range.
func Merge(data []byte, a *Allocator) (*Graph, error) {
	g, err := Decode(data)
	if err != nil {
		return nil, err
	}
	g.Rebase(a.Reserve(g.Len()))
	return g, nil
}
