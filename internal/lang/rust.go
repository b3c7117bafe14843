package lang

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

// Rust returns the Rust language.
func Rust() Language {
	return &grammar{
		name:     "rust",
		ext:      "rs",
		language: tree_sitter.NewLanguage(tree_sitter_rust.Language()),
		mappings: []Mapping{
			{Name: "functions", Pattern: `(source_file (function_item) @fn)`, Script: expand("rust_functions.yml"), Target: "fn"},
			{Name: "impls", Pattern: `(source_file (impl_item) @impl)`, Script: expand("rust_impls.yml"), Target: "impl"},
			{Name: "structs", Pattern: `(source_file (struct_item) @struct)`, Script: expand("rust_structs.yml"), Target: "struct"},
		},
	}
}
