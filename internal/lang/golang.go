package lang

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
)

// Go returns the Go language.
func Go() Language {
	functions := expand("go_functions.yml")
	return &grammar{
		name:     "go",
		ext:      "go",
		language: tree_sitter.NewLanguage(tree_sitter_go.Language()),
		mappings: []Mapping{
			{Name: "functions", Pattern: `(source_file (function_declaration) @fn)`, Script: functions, Target: "fn"},
			{Name: "methods", Pattern: `(source_file (method_declaration) @fn)`, Script: functions, Target: "fn"},
			{Name: "types", Pattern: `(source_file (type_declaration) @decl)`, Script: expand("go_types.yml"), Target: "decl"},
		},
	}
}
