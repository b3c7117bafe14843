package graph

import (
	"github.com/zeebo/xxh3"
)

// ForeignAttr marks synthetic edges added by Link.
const ForeignAttr = "foreign"

// RefersTo decides whether a leaf node refers to the root of another graph.
type RefersTo func(leaf, root *Node) bool

// SameAttr returns a predicate that matches when leaf and root carry equal,
// non-null values for key.
func SameAttr(key string) RefersTo {
	return func(leaf, root *Node) bool {
		lv, rv := leaf.Attr(key), root.Attr(key)
		return !lv.IsNull() && lv.Equal(rv)
	}
}

// AttrPair returns a predicate comparing the leaf's leafKey attribute with
// the root's rootKey attribute, e.g. a call's name against a function's name.
func AttrPair(leafKey, rootKey string) RefersTo {
	return func(leaf, root *Node) bool {
		lv, rv := leaf.Attr(leafKey), root.Attr(rootKey)
		return !lv.IsNull() && lv.Equal(rv)
	}
}

func foreignEdge() Attrs {
	return Attrs{ForeignAttr: Bool(true)}
}

// Link adds a foreign edge from every leaf of every graph to the root of
// every other graph for which refersTo holds. Leaves are computed before any
// edge is added. It returns the number of edges added.
func Link(graphs []*Graph, refersTo RefersTo) int {
	type pending struct {
		leaf *Node
		sink uint64
	}
	var edges []pending
	for _, g := range graphs {
		own := g.IDs()
		for _, leaf := range g.Leaves() {
			for _, other := range graphs {
				root := other.Root()
				if root == nil || own.Contains(root.ID) {
					continue
				}
				if refersTo(leaf, root) {
					edges = append(edges, pending{leaf: leaf, sink: root.ID})
				}
			}
		}
	}
	for _, p := range edges {
		p.leaf.AddEdge(p.sink, foreignEdge())
	}
	return len(edges)
}

// LinkByAttr is Link with the pair predicate AttrPair(leafKey, rootKey),
// answered through a hash index of root values instead of a full scan.
func LinkByAttr(graphs []*Graph, leafKey, rootKey string) int {
	index := make(map[uint64][]int)
	for i, g := range graphs {
		root := g.Root()
		if root == nil {
			continue
		}
		v := root.Attr(rootKey)
		if v.IsNull() {
			continue
		}
		h, ok := hashValue(v)
		if !ok {
			continue
		}
		index[h] = append(index[h], i)
	}

	type pending struct {
		leaf *Node
		sink uint64
	}
	var edges []pending
	for i, g := range graphs {
		own := g.IDs()
		for _, leaf := range g.Leaves() {
			v := leaf.Attr(leafKey)
			if v.IsNull() {
				continue
			}
			h, ok := hashValue(v)
			if !ok {
				continue
			}
			for _, j := range index[h] {
				if j == i {
					continue
				}
				root := graphs[j].Root()
				if own.Contains(root.ID) || !v.Equal(root.Attr(rootKey)) {
					continue
				}
				edges = append(edges, pending{leaf: leaf, sink: root.ID})
			}
		}
	}
	for _, p := range edges {
		p.leaf.AddEdge(p.sink, foreignEdge())
	}
	return len(edges)
}

func hashValue(v Value) (uint64, bool) {
	data, err := v.MarshalJSON()
	if err != nil {
		return 0, false
	}
	return xxh3.Hash(data), true
}
