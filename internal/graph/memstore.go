package graph

import (
	"context"
	"strings"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu       sync.RWMutex
	graphs   []*Graph
	nodes    map[uint64]*Node
	incoming map[uint64][]uint64
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:    make(map[uint64]*Node),
		incoming: make(map[uint64][]uint64),
	}
}

// Replace indexes graphs, dropping whatever was stored before.
func (m *MemStore) Replace(_ context.Context, graphs []*Graph) error {
	nodes := make(map[uint64]*Node)
	incoming := make(map[uint64][]uint64)
	for _, g := range graphs {
		for _, n := range g.Nodes() {
			nodes[n.ID] = n
			for _, e := range n.Edges {
				incoming[e.Sink] = append(incoming[e.Sink], n.ID)
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs = graphs
	m.nodes = nodes
	m.incoming = incoming
	return nil
}

// Graphs returns the stored graphs.
func (m *MemStore) Graphs() []*Graph {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graphs
}

// Node returns the node for the given id, or nil if not found.
func (m *MemStore) Node(_ context.Context, id uint64) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nodes[id], nil
}

// FindNodes scans nodes in graph order, so results are stable across calls.
func (m *MemStore) FindNodes(_ context.Context, attr, query string, limit int) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lowerQuery := strings.ToLower(query)
	var results []*Node
	for _, g := range m.graphs {
		for _, n := range g.Nodes() {
			s, ok := n.Attr(attr).AsString()
			if !ok || !strings.Contains(strings.ToLower(s), lowerQuery) {
				continue
			}
			results = append(results, n)
			if limit > 0 && len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}

// Reach performs a BFS from id in the given direction, up to maxDepth hops.
// It returns one Path per reachable node.
func (m *MemStore) Reach(_ context.Context, id uint64, direction Direction, maxDepth int) ([]Path, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		return nil, nil
	}

	type bfsEntry struct {
		id   uint64
		path []uint64
	}

	visited := map[uint64]bool{id: true}
	queue := []bfsEntry{{id: id, path: []uint64{id}}}
	var paths []Path

	for depth := 0; depth < maxDepth && len(queue) > 0; depth++ {
		var nextQueue []bfsEntry
		for _, entry := range queue {
			for _, nb := range m.neighbors(entry.id, direction) {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				newPath := make([]uint64, len(entry.path), len(entry.path)+1)
				copy(newPath, entry.path)
				newPath = append(newPath, nb)
				paths = append(paths, Path{Nodes: newPath, Depth: len(newPath) - 1})
				nextQueue = append(nextQueue, bfsEntry{id: nb, path: newPath})
			}
		}
		queue = nextQueue
	}

	return paths, nil
}

// neighbors returns IDs reachable from id in one hop along the given direction.
func (m *MemStore) neighbors(id uint64, direction Direction) []uint64 {
	switch direction {
	case DirectionIn:
		return m.incoming[id]
	default:
		n, ok := m.nodes[id]
		if !ok {
			return nil
		}
		out := make([]uint64, 0, len(n.Edges))
		for _, e := range n.Edges {
			out = append(out, e.Sink)
		}
		return out
	}
}

// Stats counts graphs, nodes and edges, and groups nodes by their "type"
// attribute.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{Graphs: len(m.graphs), ByType: make(map[string]int)}
	for _, g := range m.graphs {
		for _, n := range g.Nodes() {
			st.Nodes++
			if t, ok := n.Attr("type").AsString(); ok {
				st.ByType[t]++
			}
			for _, e := range n.Edges {
				st.Edges++
				if b, _ := e.Attrs[ForeignAttr].AsBool(); b {
					st.ForeignEdges++
				}
			}
		}
	}
	return st, nil
}

// Clusters computes the foreign-edge components of the stored graphs.
func (m *MemStore) Clusters(_ context.Context) ([]Cluster, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Clusters(m.graphs), nil
}
