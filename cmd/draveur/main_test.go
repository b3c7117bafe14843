package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/draveur/internal/export"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	dir, err := filepath.Abs(filepath.Join("..", "..", "testdata", "fixtures", name))
	require.NoError(t, err)
	return dir
}

// ---------------------------------------------------------------------------
// crawl
// ---------------------------------------------------------------------------

func TestCrawl_JSON(t *testing.T) {
	out, err := execute(t, "crawl", fixture(t, "python_project"), "--threads", "2")
	require.NoError(t, err)

	var graphs []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &graphs))
	assert.Len(t, graphs, 6)
}

func TestCrawl_Stats(t *testing.T) {
	out, err := execute(t, "crawl", fixture(t, "go_project"), "--language", "go", "--stats")
	require.NoError(t, err)

	var run export.RunExport
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "go", run.Language)
	assert.Equal(t, 2, run.Files)
	assert.Len(t, run.Graphs, 7)
	assert.Empty(t, run.Error)
}

func TestCrawl_Mermaid(t *testing.T) {
	out, err := execute(t, "crawl", fixture(t, "python_project"), "--format", "mermaid", "--max-graphs", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Equal(t, 1, strings.Count(out, "subgraph"))
}

func TestCrawl_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphs.json")
	out, err := execute(t, "crawl", fixture(t, "python_project"), "-o", path)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var graphs []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &graphs))
	assert.Len(t, graphs, 6)
}

func TestCrawl_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte("class A:\n    pass\n\ndef f():\n    pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draveur.yml"), []byte(`
noBuiltin: true
mappings:
  - name: functions
    pattern: "(function_definition name: (identifier) @name) @fn"
    target: fn
    script: |
      stanzas:
        - query: "(function_definition name: (identifier) @name) @fn"
          nodes: [fn]
          attrs:
            - node: fn
              set: {name: (source-text @name)}
`), 0o644))

	out, err := execute(t, "crawl", dir)
	require.NoError(t, err)
	var graphs []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &graphs))
	require.Len(t, graphs, 1)
	assert.Contains(t, string(graphs[0]), `"name":"f"`)
}

func TestCrawl_Progress(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"crawl", fixture(t, "python_project"), "--progress"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	lines := strings.Count(stderr.String(), "✓")
	assert.Equal(t, 3, lines, "one line per crawled file:\n%s", stderr.String())
	assert.Contains(t, stderr.String(), "service.py")
}

func TestCrawl_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing dir", []string{"crawl", filepath.Join(t.TempDir(), "nope")}, "nope"},
		{"unknown language", []string{"crawl", t.TempDir(), "--language", "cobol"}, "language"},
		{"bad policy", []string{"crawl", t.TempDir(), "--on-script-error", "retry"}, "OnScriptError"},
		{"bad format", []string{"crawl", t.TempDir(), "--format", "xml"}, "Format"},
		{"missing config", []string{"crawl", t.TempDir(), "--config", filepath.Join(t.TempDir(), "x.yml")}, "x.yml"},
		{"too many args", []string{"crawl", "a", "b"}, "accepts at most 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCrawl_PartialResultOnError(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.py"), []byte("def f():\n    pass\n"), 0o644))
	locked := filepath.Join(dir, "locked.py")
	require.NoError(t, os.WriteFile(locked, []byte("def g():\n    pass\n"), 0o644))
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	out, err := execute(t, "crawl", dir, "--stats")
	require.Error(t, err)

	var run export.RunExport
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, 1, run.Failed)
	assert.Len(t, run.Graphs, 1)
	assert.NotEmpty(t, run.Error)
}

// ---------------------------------------------------------------------------
// languages / version
// ---------------------------------------------------------------------------

func TestLanguages(t *testing.T) {
	out, err := execute(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "LANGUAGE")
	for _, want := range []string{"python", ".py", "decorated-classes", "go", "rust", "typescript"} {
		assert.Contains(t, out, want)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}
