package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/dusk-indust/draveur/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var python = tree_sitter.NewLanguage(tree_sitter_python.Language())

func compile(t *testing.T, text string) *Program {
	t.Helper()
	p, err := Compile(python, text)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func run(t *testing.T, p *Program, src string, vars map[string]graph.Value) (*graph.Graph, error) {
	t.Helper()
	parser := tree_sitter.NewParser()
	defer parser.Close()
	require.NoError(t, parser.SetLanguage(python))
	tree := parser.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	defer tree.Close()
	return p.Execute(tree, []byte(src), vars)
}

func defaultVars() map[string]graph.Value {
	return map[string]graph.Value{
		GlobalFilename: graph.String("f.py"),
		GlobalRow:      graph.Uint(0),
		GlobalColumn:   graph.Uint(0),
	}
}

const twoDefs = "def a():\n    b()\n\ndef c():\n    pass\n"

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestParseExpr(t *testing.T) {
	tests := []struct {
		src     string
		wantErr string
	}{
		{`(source-text @x)`, ""},
		{`(plus 1 2 $global_row)`, ""},
		{`"quoted \"text\""`, ""},
		{`(line-offset (start-row @x) $global_column)`, ""},
		{`(nope @x)`, "unknown function"},
		{`(source-text)`, "wrong number of arguments"},
		{`(plus 1`, "unclosed call"},
		{`(plus 1) 2`, "trailing input"},
		{`"open`, "unterminated string"},
		{`@`, "empty name"},
		{`(plus 1 !)`, "unexpected"},
		{`bare`, "bare symbol"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := parseExpr(tt.src)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestCompileValue_Literals(t *testing.T) {
	tests := []struct {
		raw  any
		want graph.Value
	}{
		{nil, graph.Null()},
		{true, graph.Bool(true)},
		{7, graph.Uint(7)},
		{"method", graph.String("method")},
		{[]any{"a", 1}, graph.List(graph.String("a"), graph.Uint(1))},
	}
	for _, tt := range tests {
		e, err := compileValue(tt.raw)
		require.NoError(t, err)
		v, err := e.eval(&scope{})
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(v.v), "%v", tt.raw)
	}

	_, err := compileValue(-1)
	assert.Error(t, err)
	_, err = compileValue(1.5)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Compile
// ---------------------------------------------------------------------------

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"empty", "", "decode script"},
		{"no stanzas", "globals: [a]\n", "no stanzas"},
		{"unknown field", "stanzas:\n  - query: (identifier) @x\n    bogus: 1\n", "bogus"},
		{"bad query", "stanzas:\n  - name: s\n    query: (identifier\n", "stanza s: query"},
		{"unknown capture", "stanzas:\n  - query: (identifier) @x\n    attrs:\n      - node: x\n        set: {n: (source-text @y)}\n", "unknown capture @y"},
		{"unknown shorthand", "stanzas:\n  - query: (identifier) @x\n    attrs:\n      - node: x\n        apply: [nope]\n", "unknown shorthand nope"},
		{"undefined var", "stanzas:\n  - query: (identifier) @x\n    attrs:\n      - node: x\n        set: {n: $missing}\n", "undefined variable $missing"},
		{"capture in shorthand", "shorthands:\n  s:\n    param: n\n    attrs: {a: (source-text @x)}\nstanzas:\n  - query: (identifier) @x\n", "captures are not allowed"},
		{"shorthand without param", "shorthands:\n  s:\n    attrs: {a: 1}\nstanzas:\n  - query: (identifier) @x\n", "missing param"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(python, tt.text)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCompile_DeclaredGlobals(t *testing.T) {
	p := compile(t, "globals: [project]\nstanzas:\n  - query: (identifier) @x\n    nodes: [x]\n    attrs:\n      - {node: x, set: {p: $project}}\n")
	assert.Equal(t, []string{"project"}, p.Globals())

	_, err := run(t, p, "x\n", defaultVars())
	assert.ErrorContains(t, err, "missing global project")

	g, err := run(t, p, "x\n", map[string]graph.Value{"project": graph.String("demo")})
	require.NoError(t, err)
	assert.Equal(t, "demo", g.Root().Attr("p").String())
}

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestExecute_PackageDocScript(t *testing.T) {
	p := compile(t, `
globals: [global_filename, global_row]
shorthands:
  position:
    param: node
    attrs:
      start_row: (plus $global_row (start-row $node))
stanzas:
  - name: methods
    query: |
      (class_definition
        body: (block (function_definition name: (identifier) @name) @fn)) @class
    nodes: [class, fn]
    attrs:
      - node: fn
        set: {name: (source-text @name), kind: function}
        apply: [position]
    edges:
      - {from: class, to: fn, set: {kind: method}}
`)
	vars := defaultVars()
	vars[GlobalRow] = graph.Uint(10)
	g, err := run(t, p, "class A:\n    def m(self):\n        pass\n", vars)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	class, fn := g.At(0), g.At(1)
	assert.Equal(t, "m", fn.Attr("name").String())
	assert.Equal(t, "function", fn.Attr("kind").String())
	assert.Equal(t, "11", fn.Attr("start_row").String())
	require.Len(t, class.Edges, 1)
	assert.Equal(t, uint64(1), class.Edges[0].Sink)
	assert.Equal(t, "method", class.Edges[0].Attrs["kind"].String())
}

func TestCompile_PlainScalarQueryWithFields(t *testing.T) {
	_, err := Compile(python, `
stanzas:
  - query: (function_definition name: (identifier) @name) @fn
    nodes: [fn]
`)
	assert.Error(t, err)
}

func TestExecute_NoMatchesIsEmpty(t *testing.T) {
	p := compile(t, "stanzas:\n  - query: (class_definition) @c\n    nodes: [c]\n")
	g, err := run(t, p, twoDefs, defaultVars())
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestExecute_LazyForwardReference(t *testing.T) {
	// The edge stanza comes first but refers to nodes created later.
	p := compile(t, `
stanzas:
  - name: link
    query: (module (function_definition) @first . (function_definition) @second)
    edges:
      - {from: first, to: second, set: {kind: next}}
  - name: defs
    query: |
      (function_definition name: (identifier) @name) @fn
    nodes: [fn]
    attrs:
      - {node: fn, set: {name: (source-text @name), file: $global_filename}}
`)
	g, err := run(t, p, twoDefs, defaultVars())
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())
	assert.Equal(t, "a", g.At(0).Attr("name").String())
	assert.Equal(t, "f.py", g.At(0).Attr("file").String())
	require.Len(t, g.At(0).Edges, 1)
	assert.Equal(t, uint64(1), g.At(0).Edges[0].Sink)
	assert.Equal(t, "next", g.At(0).Edges[0].Attrs["kind"].String())
}

func TestExecute_MissingNodeIsError(t *testing.T) {
	p := compile(t, `
stanzas:
  - name: calls
    query: |
      (call function: (identifier) @name) @call
    attrs:
      - {node: call, set: {name: (source-text @name)}}
`)
	_, err := run(t, p, twoDefs, defaultVars())
	assert.ErrorContains(t, err, "stanza calls: no graph node for @call")
}

func TestExecute_NodesAreIdempotent(t *testing.T) {
	p := compile(t, `
stanzas:
  - query: (function_definition) @fn
    nodes: [fn]
  - query: |
      (function_definition name: (identifier) @n) @fn
    nodes: [fn]
    attrs:
      - {node: fn, set: {name: (source-text @n)}}
`)
	g, err := run(t, p, twoDefs, defaultVars())
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, "c", g.At(1).Attr("name").String())
}

func TestExecute_RootReference(t *testing.T) {
	p := compile(t, `
stanzas:
  - query: (function_definition) @fn
    nodes: [fn]
  - query: (call) @call
    nodes: [call]
    attrs:
      - {node: $root, set: {calls: true}}
    edges:
      - {from: $root, to: call}
`)
	g, err := run(t, p, "def a():\n    b()\n    c()\n", defaultVars())
	require.NoError(t, err)
	require.Equal(t, 3, g.Len())
	assert.Len(t, g.Root().Edges, 2)
	flag, _ := g.Root().Attr("calls").AsBool()
	assert.True(t, flag)
}

func TestExecute_WhenGuardAndShorthand(t *testing.T) {
	p := compile(t, `
shorthands:
  pos:
    param: node
    attrs:
      row: (plus $global_row (start-row $node))
      col: (plus (line-offset (start-row $node) $global_column) (start-column $node))
stanzas:
  - query: |
      (function_definition return_type: (_)? @ret) @fn
    nodes: [fn]
    attrs:
      - {node: fn, apply: [pos]}
      - {node: fn, when: [ret], set: {returns: (source-text @ret)}}
`)
	vars := defaultVars()
	vars[GlobalRow] = graph.Uint(20)
	vars[GlobalColumn] = graph.Uint(8)
	g, err := run(t, p, "def a() -> int:\n    pass\n\ndef b():\n    pass\n", vars)
	require.NoError(t, err)
	require.Equal(t, 2, g.Len())

	assert.Equal(t, "int", g.At(0).Attr("returns").String())
	assert.True(t, g.At(1).Attr("returns").IsNull())
	assert.Equal(t, "20", g.At(0).Attr("row").String())
	assert.Equal(t, "8", g.At(0).Attr("col").String())
	assert.Equal(t, "23", g.At(1).Attr("row").String())
	assert.Equal(t, "0", g.At(1).Attr("col").String())
}

func TestExecute_SyntaxNodeNotStorable(t *testing.T) {
	p := compile(t, `
stanzas:
  - query: (function_definition) @fn
    nodes: [fn]
    attrs:
      - {node: fn, set: {raw: "@fn"}}
`)
	_, err := run(t, p, twoDefs, defaultVars())
	assert.ErrorContains(t, err, "not a storable value")
}

func TestExecute_TypeErrors(t *testing.T) {
	p := compile(t, `
stanzas:
  - query: (function_definition) @fn
    nodes: [fn]
    attrs:
      - {node: fn, set: {bad: (plus $global_filename 1)}}
`)
	_, err := run(t, p, twoDefs, defaultVars())
	assert.ErrorContains(t, err, "expected an integer")
}
