package lang

import (
	"fmt"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// Decorator matches a decorator and captures its name as @decorator_name,
// for plain (@a, @a.b) and called (@a(), @a.b()) forms. The trailing anchor
// keeps only the decorator adjacent to the definition, so with stacked
// decorators the last one wins.
const Decorator = `(decorator [(call [function: (identifier) function: (attribute)] @decorator_name) (identifier) @decorator_name (attribute) @decorator_name]) @_ .`

const (
	syncCall  = `(call [function: (identifier) function: (attribute)] @call_name) @call`
	asyncCall = `(await ` + syncCall + `)`
)

// callExpr matches a statement that is a call, an awaited call, or an
// assignment of either.
var callExpr = fmt.Sprintf(`(expression_statement [%s %s (assignment left: (_) right: [%s %s])])`,
	syncCall, asyncCall, syncCall, asyncCall)

// BodyCalls matches calls made directly in a definition body or in a with
// block of that body.
var BodyCalls = fmt.Sprintf(`body: (block [%s (with_statement body: (block %s))])`, callExpr, callExpr)

// QueryDecorated matches decorated definitions of kind (class_definition or
// function_definition), capturing the whole definition as @body. A
// non-empty allowlist restricts the decorator names.
func QueryDecorated(kind string, allow ...string) string {
	if len(allow) == 0 {
		return fmt.Sprintf(`(decorated_definition %s definition: (%s)) @body`, Decorator, kind)
	}
	quoted := make([]string, len(allow))
	for i, a := range allow {
		quoted[i] = strconv.Quote(a)
	}
	return fmt.Sprintf(`(decorated_definition %s definition: (%s) (#any-of? @decorator_name %s)) @body`,
		Decorator, kind, strings.Join(quoted, " "))
}

// QueryDecoratedClasses matches decorated classes.
func QueryDecoratedClasses(allow ...string) string {
	return QueryDecorated("class_definition", allow...)
}

// QueryDecoratedFunctions matches decorated functions.
func QueryDecoratedFunctions(allow ...string) string {
	return QueryDecorated("function_definition", allow...)
}

// Python query shortcuts.
const (
	QueryFunctions = `(module (function_definition) @fn)`
	QueryClasses   = `(class_definition) @class`
)

// PythonClassScript builds class, method and method-call nodes.
var PythonClassScript = expand("python_classes.yml")

// PythonFunctionScript builds function, call and conditional nodes.
var PythonFunctionScript = expand("python_functions.yml")

// PythonDecoratedClasses is the mapping for decorated top-level classes,
// optionally restricted to an allowlist of decorator names.
func PythonDecoratedClasses(allow ...string) Mapping {
	return Mapping{
		Name:    "decorated-classes",
		Pattern: "(module " + QueryDecoratedClasses(allow...) + ")",
		Script:  PythonClassScript,
		Target:  "body",
	}
}

// Python returns the Python language.
func Python() Language {
	return &grammar{
		name:     "python",
		ext:      "py",
		language: tree_sitter.NewLanguage(tree_sitter_python.Language()),
		mappings: []Mapping{
			{Name: "functions", Pattern: QueryFunctions, Script: PythonFunctionScript, Target: "fn"},
			{Name: "decorated-functions", Pattern: "(module " + QueryDecoratedFunctions() + ")", Script: PythonFunctionScript, Target: "body"},
			{Name: "classes", Pattern: `(module (class_definition) @class)`, Script: PythonClassScript, Target: "class"},
			PythonDecoratedClasses(),
		},
	}
}
