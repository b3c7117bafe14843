//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/draveur/internal/config"
	"github.com/dusk-indust/draveur/internal/engine"
	"github.com/dusk-indust/draveur/internal/export"
	"github.com/dusk-indust/draveur/internal/graph"
)

func fixtureDir(name string) string {
	dir, _ := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", name))
	return dir
}

func loadFixtureConfig(t *testing.T, fixture, language string) *config.Config {
	t.Helper()
	cfg, err := config.Load(fixtureDir(fixture))
	require.NoError(t, err)
	cfg.Language = language
	return cfg
}

// runFixture extracts a fixture with the given worker count.
func runFixture(t *testing.T, fixture, language string, threads int) *engine.Result {
	t.Helper()
	cfg := loadFixtureConfig(t, fixture, language)
	e, err := cfg.Engine(engine.WithThreads(threads))
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	res, err := e.Run(ctx, fixtureDir(fixture))
	require.NoError(t, err)
	return res
}

// signature describes a graph independently of its identifiers.
func signature(g *graph.Graph) string {
	base := g.Root().ID
	var b strings.Builder
	for _, n := range g.Nodes() {
		data, _ := json.Marshal(n.Attrs)
		b.Write(data)
		for _, e := range n.Edges {
			data, _ := json.Marshal(e.Attrs)
			b.WriteString(" ->")
			b.WriteString(strconv.FormatUint(e.Sink-base, 10))
			b.Write(data)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// TestPipeline_E2E_Fixtures runs the full pipeline over the fixture projects
// and checks the merged identifier space and the export round trip.
func TestPipeline_E2E_Fixtures(t *testing.T) {
	tests := []struct {
		fixture  string
		language string
		files    int
		graphs   int
	}{
		{"python_project", "python", 3, 6},
		{"go_project", "go", 2, 7},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			res := runFixture(t, tt.fixture, tt.language, 4)
			assert.Equal(t, tt.files, res.Files)
			assert.Zero(t, res.Failed)
			require.Len(t, res.Graphs, tt.graphs)

			// --- Identifiers form one contiguous range starting at zero ---

			all := roaring64.New()
			for _, g := range res.Graphs {
				ids := g.IDs()
				assert.False(t, all.Intersects(ids), "graph rooted at %d overlaps another", g.Root().ID)
				all.Or(ids)

				base := g.Root().ID
				for k, n := range g.Nodes() {
					assert.Equal(t, base+uint64(k), n.ID)
					for _, e := range n.Edges {
						assert.True(t, ids.Contains(e.Sink), "edge %d -> %d leaves its graph", n.ID, e.Sink)
					}
				}

				filename, ok := g.Root().Attr("filename").AsString()
				require.True(t, ok)
				assert.True(t, strings.HasPrefix(filename, fixtureDir(tt.fixture)))
				assert.False(t, strings.HasPrefix(filename, filepath.Join(fixtureDir(tt.fixture), "build")),
					"ignored directories are not crawled")
			}
			assert.Equal(t, uint64(res.Nodes()), all.GetCardinality())
			assert.Equal(t, uint64(res.Nodes()-1), all.Maximum())

			// --- Export round trip ---

			var buf bytes.Buffer
			require.NoError(t, export.WriteJSON(&buf, res.Graphs))
			var back []*graph.Graph
			require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
			require.Len(t, back, len(res.Graphs))
			for i := range back {
				assert.Equal(t, signature(res.Graphs[i]), signature(back[i]))
			}
		})
	}
}

// TestPipeline_E2E_ThreadCountIndependent checks that one worker and many
// workers produce the same graphs up to renumbering.
func TestPipeline_E2E_ThreadCountIndependent(t *testing.T) {
	collect := func(res *engine.Result) map[string]int {
		out := make(map[string]int)
		for _, g := range res.Graphs {
			out[signature(g)]++
		}
		return out
	}

	single := runFixture(t, "python_project", "python", 1)
	parallel := runFixture(t, "python_project", "python", 8)
	assert.Equal(t, collect(single), collect(parallel))
}
