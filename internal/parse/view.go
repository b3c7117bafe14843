package parse

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// View is a sub-tree of a parsed file: a node handle plus the bytes of the
// file it came from. Bytes slices the file buffer without copying, so a view
// is only valid while both the tree and the buffer are alive.
type View struct {
	Node   tree_sitter.Node
	Source []byte
}

// Bytes returns the node's source range.
func (v View) Bytes() []byte {
	return v.Source[v.Node.StartByte():v.Node.EndByte()]
}

// Text returns a copy of the node's source range.
func (v View) Text() string { return string(v.Bytes()) }

// Empty reports whether the node spans no bytes.
func (v View) Empty() bool { return v.Node.StartByte() == v.Node.EndByte() }

// StartRow returns the zero-based row of the node's first byte.
func (v View) StartRow() uint32 { return uint32(v.Node.StartPosition().Row) }

// StartColumn returns the zero-based column of the node's first byte.
func (v View) StartColumn() uint32 { return uint32(v.Node.StartPosition().Column) }

// Kind returns the grammar node type.
func (v View) Kind() string { return v.Node.Kind() }
