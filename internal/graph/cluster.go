package graph

import (
	"sort"
	"strings"
)

// Cluster is a set of graphs connected by foreign edges.
type Cluster struct {
	// Name is the longest common directory prefix of the members' root
	// "filename" attributes.
	Name string `json:"name"`
	// Roots holds the root identifier of each member graph, ascending.
	Roots []uint64 `json:"roots"`
	// Density is linked member pairs over all member pairs.
	Density float64 `json:"density"`
}

// Clusters finds connected components of the graph-to-graph relation formed
// by foreign edges, in either direction. Only components of two or more
// graphs are returned, largest first.
//
// Algorithm:
//  1. Map every node identifier to the graph that owns it.
//  2. Build an undirected adjacency list from foreign edges between graphs.
//  3. Find connected components via BFS and score each by density.
func Clusters(graphs []*Graph) []Cluster {
	owner := make(map[uint64]int)
	for gi, g := range graphs {
		for _, n := range g.Nodes() {
			owner[n.ID] = gi
		}
	}
	adj := buildAdjacency(graphs, owner)

	visited := make([]bool, len(graphs))
	var clusters []Cluster
	for gi := range graphs {
		if visited[gi] {
			continue
		}
		component := bfsComponent(gi, adj, visited)
		if len(component) < 2 {
			continue
		}
		sort.Ints(component)

		c := Cluster{Density: density(component, adj)}
		var paths []string
		for _, member := range component {
			root := graphs[member].Root()
			c.Roots = append(c.Roots, root.ID)
			if p, ok := root.Attr("filename").AsString(); ok {
				paths = append(paths, p)
			}
		}
		c.Name = longestCommonPrefix(paths)
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].Roots) > len(clusters[j].Roots)
	})
	return clusters
}

// buildAdjacency links two graphs when a foreign edge joins them, using a
// single pass over all edges.
func buildAdjacency(graphs []*Graph, owner map[uint64]int) []map[int]bool {
	adj := make([]map[int]bool, len(graphs))
	for gi := range graphs {
		adj[gi] = make(map[int]bool)
	}
	for gi, g := range graphs {
		for _, n := range g.Nodes() {
			for _, e := range n.Edges {
				if foreign, _ := e.Attrs[ForeignAttr].AsBool(); !foreign {
					continue
				}
				other, ok := owner[e.Sink]
				if !ok || other == gi {
					continue
				}
				adj[gi][other] = true
				adj[other][gi] = true
			}
		}
	}
	return adj
}

// bfsComponent performs BFS from start on the adjacency list and returns
// all reachable graphs. It marks visited graphs as it goes.
func bfsComponent(start int, adj []map[int]bool, visited []bool) []int {
	var component []int
	queue := []int{start}
	visited[start] = true

	for len(queue) > 0 {
		gi := queue[0]
		queue = queue[1:]
		component = append(component, gi)
		for neighbor := range adj[gi] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}
	return component
}

// density is linked pairs / (n*(n-1)/2) for a component of n graphs.
func density(component []int, adj []map[int]bool) float64 {
	links := 0
	for _, gi := range component {
		for neighbor := range adj[gi] {
			// Count each undirected link once.
			if gi < neighbor {
				links++
			}
		}
	}
	n := len(component)
	return float64(links) / float64(n*(n-1)/2)
}

// longestCommonPrefix finds the longest common directory prefix among a set
// of file paths. Returns an empty string if no common prefix is found.
func longestCommonPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	prefix := paths[0]
	for _, p := range paths[1:] {
		for !strings.HasPrefix(p, prefix) {
			// Trim to the last path separator (excluding any trailing slash).
			trimmed := strings.TrimRight(prefix, "/")
			idx := strings.LastIndex(trimmed, "/")
			if idx < 0 {
				return ""
			}
			prefix = trimmed[:idx+1]
			if prefix == "/" {
				return prefix
			}
		}
	}

	// End at a directory boundary.
	if idx := strings.LastIndex(prefix, "/"); idx >= 0 {
		prefix = prefix[:idx+1]
	}
	return prefix
}
