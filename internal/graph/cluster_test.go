package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linked merges one single-node graph per path; link pairs index graphs
// joined by a foreign edge from the first to the second.
func linked(t *testing.T, paths []string, link [][2]int) []*Graph {
	t.Helper()
	alloc := NewAllocator(0)
	var graphs []*Graph
	for _, p := range paths {
		g := New()
		g.AddNode().Attrs["filename"] = String(p)
		m, err := Merge(encode(t, g), alloc)
		require.NoError(t, err)
		graphs = append(graphs, m)
	}
	for _, l := range link {
		graphs[l[0]].Root().AddEdge(graphs[l[1]].Root().ID, Attrs{ForeignAttr: Bool(true)})
	}
	return graphs
}

func TestClusters_NoForeignEdges(t *testing.T) {
	graphs := linked(t, []string{"src/a.py", "src/b.py"}, nil)
	graphs[0].Root().AddEdge(graphs[1].Root().ID, Attrs{"kind": String("local")})

	assert.Empty(t, Clusters(graphs), "only foreign edges join graphs")
}

func TestClusters_Components(t *testing.T) {
	graphs := linked(t,
		[]string{"src/pkg/a.py", "src/pkg/sub/b.py", "src/pkg/c.py", "lib/d.py", "lib/e.py", "other/f.py"},
		[][2]int{{0, 1}, {2, 1}, {3, 4}},
	)

	clusters := Clusters(graphs)
	require.Len(t, clusters, 2)

	assert.Equal(t, "src/pkg/", clusters[0].Name)
	assert.Equal(t, []uint64{0, 1, 2}, clusters[0].Roots)
	assert.InDelta(t, 2.0/3.0, clusters[0].Density, 1e-9)

	assert.Equal(t, "lib/", clusters[1].Name)
	assert.Equal(t, []uint64{3, 4}, clusters[1].Roots)
	assert.InDelta(t, 1.0, clusters[1].Density, 1e-9)
}

func TestClusters_AfterLink(t *testing.T) {
	graphs := callerAndCallee(t)
	graphs[0].Root().Attrs["filename"] = String("/p/main.py")
	graphs[1].Root().Attrs["filename"] = String("/p/lib/target.py")
	require.Equal(t, 1, Link(graphs, SameAttr("name")))

	clusters := Clusters(graphs)
	require.Len(t, clusters, 1)
	assert.Equal(t, "/p/", clusters[0].Name)
	assert.Equal(t, []uint64{0, 2}, clusters[0].Roots)
}

func TestLongestCommonPrefix(t *testing.T) {
	tests := []struct {
		paths []string
		want  string
	}{
		{nil, ""},
		{[]string{"a/b/c.py"}, "a/b/"},
		{[]string{"a/b/c.py", "a/b/d.py"}, "a/b/"},
		{[]string{"a/bc/x.py", "a/bd/y.py"}, "a/"},
		{[]string{"x.py", "y.py"}, ""},
		{[]string{"/x.py", "/y.py"}, "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, longestCommonPrefix(tt.paths), "paths %v", tt.paths)
	}
}
