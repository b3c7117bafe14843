package script

import (
	"fmt"
	"math"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/draveur/internal/graph"
)

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	impl    func(sc *scope, args []value) (value, error)
}

// functions available to expressions.
var functions = map[string]function{
	"source-text":  {1, 1, sourceText},
	"node-type":    {1, 1, nodeType},
	"start-row":    {1, 1, position(func(n *tree_sitter.Node) uint { return n.StartPosition().Row })},
	"start-column": {1, 1, position(func(n *tree_sitter.Node) uint { return n.StartPosition().Column })},
	"end-row":      {1, 1, position(func(n *tree_sitter.Node) uint { return n.EndPosition().Row })},
	"end-column":   {1, 1, position(func(n *tree_sitter.Node) uint { return n.EndPosition().Column })},
	"plus":         {1, -1, plus},
	"line-offset":  {2, 2, lineOffset},
}

func singleNode(v value) (*tree_sitter.Node, error) {
	if !v.isSyntax() {
		return nil, fmt.Errorf("expected a syntax node, got %s", v.v.Kind())
	}
	if len(v.nodes) != 1 {
		return nil, fmt.Errorf("expected one syntax node, got %d", len(v.nodes))
	}
	return &v.nodes[0], nil
}

func sourceText(sc *scope, args []value) (value, error) {
	v := args[0]
	if !v.isSyntax() {
		return value{}, fmt.Errorf("expected a syntax node, got %s", v.v.Kind())
	}
	if len(v.nodes) == 1 {
		return value{v: graph.String(v.nodes[0].Utf8Text(sc.src))}, nil
	}
	items := make([]graph.Value, len(v.nodes))
	for i := range v.nodes {
		items[i] = graph.String(v.nodes[i].Utf8Text(sc.src))
	}
	return value{v: graph.List(items...)}, nil
}

func nodeType(_ *scope, args []value) (value, error) {
	n, err := singleNode(args[0])
	if err != nil {
		return value{}, err
	}
	return value{v: graph.String(n.Kind())}, nil
}

func position(get func(*tree_sitter.Node) uint) func(*scope, []value) (value, error) {
	return func(_ *scope, args []value) (value, error) {
		n, err := singleNode(args[0])
		if err != nil {
			return value{}, err
		}
		p := get(n)
		if uint64(p) > math.MaxUint32 {
			return value{}, fmt.Errorf("position %d overflows u32", p)
		}
		return value{v: graph.Uint(uint32(p))}, nil
	}
}

func integer(v value) (uint32, error) {
	if v.isSyntax() {
		return 0, fmt.Errorf("expected an integer, got a syntax node")
	}
	u, ok := v.v.AsUint()
	if !ok {
		return 0, fmt.Errorf("expected an integer, got %s", v.v.Kind())
	}
	return u, nil
}

func plus(_ *scope, args []value) (value, error) {
	var sum uint64
	for _, a := range args {
		u, err := integer(a)
		if err != nil {
			return value{}, err
		}
		sum += uint64(u)
	}
	if sum > math.MaxUint32 {
		return value{}, fmt.Errorf("sum %d overflows u32", sum)
	}
	return value{v: graph.Uint(uint32(sum))}, nil
}

// lineOffset returns offset when row is 0 and 0 otherwise: a column shift
// that only applies to the first line of a sub-tree.
func lineOffset(_ *scope, args []value) (value, error) {
	row, err := integer(args[0])
	if err != nil {
		return value{}, err
	}
	offset, err := integer(args[1])
	if err != nil {
		return value{}, err
	}
	if row != 0 {
		offset = 0
	}
	return value{v: graph.Uint(offset)}, nil
}
