// Package parse turns source bytes into syntax trees and exposes the
// matches of compiled patterns as zero-copy sub-tree views.
package parse

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// NewParserFunc builds a parser configured for one grammar.
type NewParserFunc func() (*tree_sitter.Parser, error)

// Pool holds one parser per worker. Slot i is constructed on first use and
// must only be used by worker i, so no locking is needed; Close must run
// after every worker has finished.
type Pool struct {
	newParser NewParserFunc
	slots     []*tree_sitter.Parser
}

// NewPool returns a pool with one slot per worker.
func NewPool(workers int, newParser NewParserFunc) *Pool {
	return &Pool{newParser: newParser, slots: make([]*tree_sitter.Parser, workers)}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return len(p.slots) }

// Get returns the parser of worker, creating it on first use.
func (p *Pool) Get(worker int) (*tree_sitter.Parser, error) {
	if worker < 0 || worker >= len(p.slots) {
		return nil, fmt.Errorf("parser pool: worker %d out of range [0,%d)", worker, len(p.slots))
	}
	if parser := p.slots[worker]; parser != nil {
		return parser, nil
	}
	parser, err := p.newParser()
	if err != nil {
		return nil, err
	}
	p.slots[worker] = parser
	return parser, nil
}

// Close releases every constructed parser.
func (p *Pool) Close() {
	for i, parser := range p.slots {
		if parser != nil {
			parser.Close()
			p.slots[i] = nil
		}
	}
}

// ParseError reports that the parser produced no tree.
type ParseError struct {
	Path  string
	Start uint // byte offset of the parsed range within the file
	End   uint
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s [%d:%d]: no syntax tree", e.Path, e.Start, e.End)
}

// Tree parses src with parser. A nil tree from the parser is a *ParseError
// naming path.
func Tree(parser *tree_sitter.Parser, path string, src []byte) (*tree_sitter.Tree, error) {
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, &ParseError{Path: path, End: uint(len(src))}
	}
	return tree, nil
}
