package lang

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// TypeScript returns the TypeScript language. Exported declarations are
// matched through their export statement.
func TypeScript() Language {
	functions := expand("typescript_functions.yml")
	classes := expand("typescript_classes.yml")
	interfaces := expand("typescript_interfaces.yml")
	return &grammar{
		name:     "typescript",
		ext:      "ts",
		language: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		mappings: []Mapping{
			{Name: "functions", Pattern: `(program [(function_declaration) (export_statement declaration: (function_declaration))] @fn)`, Script: functions, Target: "fn"},
			{Name: "classes", Pattern: `(program [(class_declaration) (export_statement declaration: (class_declaration))] @class)`, Script: classes, Target: "class"},
			{Name: "interfaces", Pattern: `(program [(interface_declaration) (export_statement declaration: (interface_declaration))] @iface)`, Script: interfaces, Target: "iface"},
		},
	}
}
