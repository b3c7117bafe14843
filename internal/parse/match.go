package parse

import (
	"iter"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Capture is one named node of a match.
type Capture struct {
	Name string
	View View
}

// Match is one match of a pattern, with captures in pattern order.
type Match struct {
	Pattern  int
	Captures []Capture
}

// Targets returns the non-empty captures named target, or every non-empty
// capture when target is "".
func (m Match) Targets(target string) []View {
	var out []View
	for _, c := range m.Captures {
		if target != "" && c.Name != target {
			continue
		}
		if c.View.Empty() {
			continue
		}
		out = append(out, c.View)
	}
	return out
}

// Matches lazily yields the matches of query under root. Text predicates in
// the query are evaluated against src. The cursor is released when the
// iteration ends, including an early break.
func Matches(query *tree_sitter.Query, root *tree_sitter.Node, src []byte) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		cursor := tree_sitter.NewQueryCursor()
		defer cursor.Close()

		names := query.CaptureNames()
		matches := cursor.Matches(query, root, src)
		for m := matches.Next(); m != nil; m = matches.Next() {
			out := Match{Pattern: int(m.PatternIndex), Captures: make([]Capture, 0, len(m.Captures))}
			for _, c := range m.Captures {
				out.Captures = append(out.Captures, Capture{
					Name: names[c.Index],
					View: View{Node: c.Node, Source: src},
				})
			}
			if !yield(out) {
				return
			}
		}
	}
}
