package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/draveur/internal/graph"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// execute runs script over the whole of src, as the engine does for a
// matched sub-tree.
func execute(t *testing.T, l Language, script, src string, g Globals) *graph.Graph {
	t.Helper()
	s, err := l.CompileScript(script)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	p, err := l.NewParser()
	require.NoError(t, err)
	defer p.Close()

	tree := p.Parse([]byte(src), nil)
	require.NotNil(t, tree)
	defer tree.Close()

	out, err := s.Execute(tree, []byte(src), g.Vars())
	require.NoError(t, err)
	return out
}

func attr(n *graph.Node, key string) string {
	return n.Attr(key).String()
}

// edges maps sink id to the edge's kind attribute.
func edges(n *graph.Node) map[uint64]string {
	out := make(map[uint64]string)
	for _, e := range n.Edges {
		out[e.Sink] = e.Attrs["kind"].String()
	}
	return out
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"go", "python", "rust", "typescript"}, Names())

	l, err := Lookup("Python")
	require.NoError(t, err)
	assert.Equal(t, "python", l.Name())
	assert.Equal(t, "py", l.Extension())

	_, err = Lookup("cobol")
	assert.ErrorContains(t, err, "unsupported language: cobol")
}

func TestBuiltinMappingsCompile(t *testing.T) {
	for _, name := range Names() {
		l, err := Lookup(name)
		require.NoError(t, err)
		require.NotEmpty(t, l.Mappings(), name)

		for _, m := range l.Mappings() {
			t.Run(name+"/"+m.Name, func(t *testing.T) {
				q, err := l.CompilePattern(m.Pattern)
				require.NoError(t, err)
				defer q.Close()
				if m.Target != "" {
					assert.Contains(t, q.CaptureNames(), m.Target)
				}

				s, err := l.CompileScript(m.Script)
				require.NoError(t, err)
				s.Close()
			})
		}
	}
}

func TestDecoratedQueries(t *testing.T) {
	l := Python()
	for _, text := range []string{
		QueryDecoratedClasses(),
		QueryDecoratedClasses("workflows.workflow.define", "foo"),
		QueryDecoratedFunctions("app.route"),
		QueryFunctions,
		QueryClasses,
	} {
		q, err := l.CompilePattern(text)
		require.NoError(t, err, text)
		q.Close()
	}
	assert.Contains(t, QueryDecoratedClasses("a", "b.c"), `(#any-of? @decorator_name "a" "b.c")`)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestCompileErrorsCarryText(t *testing.T) {
	l := Python()

	_, err := l.CompilePattern(`(function_definition @fn`)
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, OpPattern, lerr.Op)
	assert.Equal(t, "python", lerr.Language)
	assert.Equal(t, `(function_definition @fn`, lerr.Text)

	bad := "stanzas:\n  - query: (identifier) @id\n    nodes: [missing]\n"
	_, err = l.CompileScript(bad)
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, OpScript, lerr.Op)
	assert.Equal(t, bad, lerr.Text)
	assert.Contains(t, err.Error(), "unknown capture @missing")
}

func TestError_Excerpt(t *testing.T) {
	err := &Error{Language: "go", Op: OpScript, Text: "\n\n  first line\nsecond"}
	assert.Contains(t, err.Error(), `"first line"`)
}

// ---------------------------------------------------------------------------
// Python scripts
// ---------------------------------------------------------------------------

func TestPythonClassScript_OneMethod(t *testing.T) {
	src := "class Greeter:\n    def hello(self):\n        return 1\n"
	g := execute(t, Python(), PythonClassScript, src, Globals{Filename: "app/greeter.py"})

	require.Equal(t, 2, g.Len())
	class, method := g.At(0), g.At(1)

	assert.Equal(t, "Greeter", attr(class, "name"))
	assert.Equal(t, "class_definition", attr(class, "type"))
	assert.Equal(t, "app/greeter.py", attr(class, "filename"))
	assert.Equal(t, "hello", attr(method, "name"))
	assert.Equal(t, "(self)", attr(method, "params"))
	assert.True(t, method.Attr("returns").IsNull())

	assert.Equal(t, map[uint64]string{1: "method"}, edges(class))
	assert.Equal(t, map[uint64]string{0: "_parent"}, edges(method))
}

func TestPythonClassScript_Decorators(t *testing.T) {
	tests := []struct {
		name       string
		decorators string
		want       string
	}{
		{"single", "    @foo\n", "foo"},
		{"stacked keeps last", "    @foo\n    @bar\n", "bar"},
		{"attribute", "    @workflows.activity\n", "workflows.activity"},
		{"called", "    @retry(3)\n", "retry"},
		{"called attribute", "    @workflows.update(name=\"x\")\n", "workflows.update"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "class A:\n" + tt.decorators + "    def m(self) -> str:\n        pass\n"
			g := execute(t, Python(), PythonClassScript, src, Globals{Filename: "a.py"})

			require.Equal(t, 2, g.Len())
			m := g.At(1)
			assert.Equal(t, "m", attr(m, "name"))
			assert.Equal(t, tt.want, attr(m, "decorator"))
			assert.Equal(t, "str", attr(m, "returns"))
			assert.Equal(t, map[uint64]string{1: "method"}, edges(g.At(0)))
		})
	}
}

func TestPythonClassScript_MethodCalls(t *testing.T) {
	src := "class A:\n" +
		"    def m(self):\n" +
		"        self.setup()\n" +
		"        x = compute(1)\n" +
		"        await fetch()\n" +
		"        with lock:\n" +
		"            flush()\n"
	g := execute(t, Python(), PythonClassScript, src, Globals{})

	require.Equal(t, 6, g.Len())
	m := g.At(1)
	var names []string
	for sink, kind := range edges(m) {
		if kind == "call" {
			names = append(names, attr(g.At(int(sink)), "name"))
		}
	}
	assert.ElementsMatch(t, []string{"self.setup", "compute", "fetch", "flush"}, names)
	assert.Equal(t, map[uint64]string{1: "_parent"}, edges(g.At(2)))
}

func TestPythonClassScript_AbsolutePositions(t *testing.T) {
	src := "class A:\n    def m(self):\n        pass\n"
	g := execute(t, Python(), PythonClassScript, src, Globals{Filename: "x.py", Row: 10, Column: 4})

	class, method := g.At(0), g.At(1)
	assert.Equal(t, "10", attr(class, "start_row"))
	assert.Equal(t, "4", attr(class, "start_col"), "first row is shifted by the sub-tree column")
	assert.Equal(t, "11", attr(method, "start_row"))
	assert.Equal(t, "4", attr(method, "start_col"), "later rows keep their own column")
}

func TestPythonFunctionScript_ControlFlow(t *testing.T) {
	src := "def run(x) -> int:\n" +
		"    start()\n" +
		"    if x:\n" +
		"        pass\n" +
		"    elif x > 1:\n" +
		"        pass\n" +
		"    else:\n" +
		"        pass\n" +
		"    return x\n"
	g := execute(t, Python(), PythonFunctionScript, src, Globals{Filename: "run.py"})

	require.Equal(t, 5, g.Len())
	fn, call, ifNode, elif, els := g.At(0), g.At(1), g.At(2), g.At(3), g.At(4)

	assert.Equal(t, "run", attr(fn, "name"))
	assert.Equal(t, "(x)", attr(fn, "params"))
	assert.Equal(t, "int", attr(fn, "returns"))
	assert.Equal(t, "start", attr(call, "name"))
	assert.Equal(t, "x", attr(ifNode, "condition"))
	assert.Equal(t, "x > 1", attr(elif, "condition"))
	assert.Equal(t, "conditional", attr(els, "kind"))

	assert.Equal(t, map[uint64]string{1: "call", 2: "entry"}, edges(fn))
	assert.Equal(t, map[uint64]string{3: "elif", 4: "else"}, edges(ifNode))
}

func TestPythonFunctionScript_Decorated(t *testing.T) {
	src := "@app.route(\"/\")\ndef index():\n    pass\n"
	g := execute(t, Python(), PythonFunctionScript, src, Globals{})

	require.Equal(t, 1, g.Len())
	assert.Equal(t, "index", attr(g.Root(), "name"))
	assert.Equal(t, "app.route", attr(g.Root(), "decorator"))
	assert.True(t, g.Root().Attr("params").IsNull(), "empty parameter lists are skipped")
}

// ---------------------------------------------------------------------------
// Other grammars
// ---------------------------------------------------------------------------

func mapping(t *testing.T, l Language, name string) Mapping {
	t.Helper()
	for _, m := range l.Mappings() {
		if m.Name == name {
			return m
		}
	}
	require.FailNow(t, "no mapping "+name)
	return Mapping{}
}

func TestGoScripts(t *testing.T) {
	l := Go()

	fn := execute(t, l, mapping(t, l, "functions").Script,
		"func Run() {\n\tfmt.Println(\"x\")\n\tif ok {\n\t\thelper()\n\t}\n}\n", Globals{})
	require.Equal(t, 3, fn.Len())
	assert.Equal(t, "Run", attr(fn.Root(), "name"))
	assert.Equal(t, map[uint64]string{1: "call", 2: "call"}, edges(fn.Root()))
	assert.Equal(t, "fmt.Println", attr(fn.At(1), "name"))

	method := execute(t, l, mapping(t, l, "methods").Script,
		"func (s *Server) Start() error { return nil }\n", Globals{})
	require.Equal(t, 1, method.Len())
	assert.Equal(t, "Server", attr(method.Root(), "receiver"))
	assert.Equal(t, "method", attr(method.Root(), "kind"))

	types := execute(t, l, mapping(t, l, "types").Script,
		"type Store interface {\n\tGet() int\n}\n", Globals{})
	require.Equal(t, 1, types.Len())
	assert.Equal(t, "Store", attr(types.Root(), "name"))
	assert.Equal(t, "interface_type", attr(types.Root(), "type_kind"))
}

func TestRustImplScript(t *testing.T) {
	l := Rust()
	src := "impl Display for Point {\n    fn fmt(&self) {\n        write(1);\n    }\n}\n"
	g := execute(t, l, mapping(t, l, "impls").Script, src, Globals{})

	require.Equal(t, 3, g.Len())
	impl, fn, call := g.At(0), g.At(1), g.At(2)
	assert.Equal(t, "Point", attr(impl, "name"))
	assert.Equal(t, "Display", attr(impl, "trait"))
	assert.Equal(t, "method", attr(fn, "kind"))
	assert.Equal(t, "write", attr(call, "name"))
	assert.Equal(t, map[uint64]string{1: "method", 2: "call"}, edges(impl))
	assert.Equal(t, map[uint64]string{0: "_parent"}, edges(fn))
}

func TestTypeScriptClassScript(t *testing.T) {
	l := TypeScript()
	src := "export class Cart {\n  total(): number {\n    return sum(this.items);\n  }\n}\n"
	g := execute(t, l, mapping(t, l, "classes").Script, src, Globals{})

	require.Equal(t, 3, g.Len())
	assert.Equal(t, "Cart", attr(g.At(0), "name"))
	assert.Equal(t, "total", attr(g.At(1), "name"))
	assert.Equal(t, "sum", attr(g.At(2), "name"))
	assert.Equal(t, map[uint64]string{1: "method", 2: "call"}, edges(g.At(0)))
}
