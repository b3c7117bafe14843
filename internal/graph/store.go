package graph

import (
	"context"
)

// Store is a read view over the merged graphs of one run. It is an
// in-memory index for the query surfaces, not a persistence layer.
type Store interface {
	// Replace swaps the stored graphs for the result of a new run.
	Replace(ctx context.Context, graphs []*Graph) error

	// Node returns the node with the given merged identifier, or nil.
	Node(ctx context.Context, id uint64) (*Node, error)

	// FindNodes returns nodes whose attribute attr contains query
	// (case-insensitive), up to limit results. A limit <= 0 returns all.
	FindNodes(ctx context.Context, attr, query string, limit int) ([]*Node, error)

	// Reach walks edges from id in the given direction up to maxDepth hops.
	Reach(ctx context.Context, id uint64, direction Direction, maxDepth int) ([]Path, error)

	Stats(ctx context.Context) (*Stats, error)

	// Clusters groups the stored graphs joined by foreign edges.
	Clusters(ctx context.Context) ([]Cluster, error)
}

// Direction controls traversal direction.
type Direction string

const (
	DirectionOut Direction = "out" // follow edges from source to sink
	DirectionIn  Direction = "in"  // follow edges from sink back to source
)

// Path is a chain of node identifiers starting at the traversal origin.
type Path struct {
	Nodes []uint64 `json:"nodes"`
	Depth int      `json:"depth"`
}

// Stats summarizes the stored graphs.
type Stats struct {
	Graphs       int            `json:"graphs"`
	Nodes        int            `json:"nodes"`
	Edges        int            `json:"edges"`
	ForeignEdges int            `json:"foreignEdges"`
	ByType       map[string]int `json:"byType"`
}
