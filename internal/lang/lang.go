// Package lang defines the capability a language must provide to the
// extraction engine and registers the built-in grammars.
package lang

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/draveur/internal/graph"
	"github.com/dusk-indust/draveur/internal/script"
)

// Language bundles a grammar with its file extension and the compilers for
// patterns and graph scripts.
type Language interface {
	Name() string
	// Extension is the accepted file extension, without the dot.
	Extension() string
	NewParser() (*tree_sitter.Parser, error)
	CompilePattern(text string) (*tree_sitter.Query, error)
	CompileScript(text string) (Script, error)
	// Mappings returns the built-in pattern and script pairs.
	Mappings() []Mapping
}

// Script builds a graph from a syntax tree. Implementations must be safe for
// concurrent use.
type Script interface {
	Execute(tree *tree_sitter.Tree, src []byte, vars map[string]graph.Value) (*graph.Graph, error)
	Close()
}

// Mapping pairs a pattern that selects sub-trees with the script run on each
// of them. Target names the capture whose nodes are forwarded; empty
// forwards every capture.
type Mapping struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
	Script  string `yaml:"script" json:"script"`
	Target  string `yaml:"target,omitempty" json:"target,omitempty"`
}

// Globals are the variables every script execution receives.
type Globals struct {
	Filename string
	Row      uint32
	Column   uint32
}

// Vars returns the globals keyed by their script names.
func (g Globals) Vars() map[string]graph.Value {
	return map[string]graph.Value{
		script.GlobalFilename: graph.String(g.Filename),
		script.GlobalRow:      graph.Uint(g.Row),
		script.GlobalColumn:   graph.Uint(g.Column),
	}
}

// Op names what a language failed to build.
type Op string

const (
	OpGrammar Op = "grammar"
	OpPattern Op = "pattern"
	OpScript  Op = "script"
)

// Error reports a grammar, pattern or script failure, with the offending
// text.
type Error struct {
	Language string
	Op       Op
	Text     string
	Err      error
}

func (e *Error) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("%s %s: %v", e.Language, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Language, e.Op, excerpt(e.Text), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// excerpt returns the first non-blank line of text, shortened.
func excerpt(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > 60 {
			return line[:57] + "..."
		}
		return line
	}
	return ""
}

// grammar is a Language backed by a tree-sitter grammar and YAML scripts.
type grammar struct {
	name     string
	ext      string
	language *tree_sitter.Language
	mappings []Mapping
}

// Compile-time assertion: *grammar satisfies Language.
var _ Language = (*grammar)(nil)

func (g *grammar) Name() string      { return g.name }
func (g *grammar) Extension() string { return g.ext }

func (g *grammar) Mappings() []Mapping {
	return append([]Mapping(nil), g.mappings...)
}

func (g *grammar) NewParser() (*tree_sitter.Parser, error) {
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(g.language); err != nil {
		p.Close()
		return nil, &Error{Language: g.name, Op: OpGrammar, Err: err}
	}
	return p, nil
}

func (g *grammar) CompilePattern(text string) (*tree_sitter.Query, error) {
	q, qerr := tree_sitter.NewQuery(g.language, text)
	if qerr != nil {
		return nil, &Error{Language: g.name, Op: OpPattern, Text: text, Err: qerr}
	}
	return q, nil
}

func (g *grammar) CompileScript(text string) (Script, error) {
	p, err := script.Compile(g.language, text)
	if err != nil {
		return nil, &Error{Language: g.name, Op: OpScript, Text: text, Err: err}
	}
	return p, nil
}
