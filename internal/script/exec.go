package script

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/draveur/internal/graph"
	"github.com/dusk-indust/draveur/internal/parse"
)

// scope is the evaluation environment of one match.
type scope struct {
	src      []byte
	vars     map[string]graph.Value
	captures map[string][]tree_sitter.Node
	locals   map[string]value
}

type pendingMatch struct {
	stanza   *stanza
	captures map[string][]tree_sitter.Node
}

// execution builds one graph. Graph nodes are keyed by the syntax node they
// were created for.
type execution struct {
	g      *graph.Graph
	byNode map[uintptr]int
	syntax []tree_sitter.Node // syntax node of each graph node, by index
	src    []byte
	vars   map[string]graph.Value
}

// Execute runs the program over tree, whose text is src. vars supplies the
// global variables; names the program does not read are ignored.
//
// Execution is lazy: every stanza is matched and its nodes created first,
// then attributes and edges are applied, so a directive may refer to a node
// created by a later stanza. Nodes appear in creation order and the first
// one created is the root.
func (p *Program) Execute(tree *tree_sitter.Tree, src []byte, vars map[string]graph.Value) (*graph.Graph, error) {
	if p.declared {
		for _, name := range p.globals {
			if _, ok := vars[name]; !ok {
				return nil, fmt.Errorf("missing global %s", name)
			}
		}
	}

	ex := &execution{g: graph.New(), byNode: make(map[uintptr]int), src: src, vars: vars}
	root := tree.RootNode()

	var pending []pendingMatch
	for _, st := range p.stanzas {
		for m := range parse.Matches(st.query, root, src) {
			caps := make(map[string][]tree_sitter.Node, len(m.Captures))
			for _, c := range m.Captures {
				caps[c.Name] = append(caps[c.Name], c.View.Node)
			}
			for _, name := range st.nodes {
				for _, n := range caps[name] {
					ex.ensure(n)
				}
			}
			pending = append(pending, pendingMatch{stanza: st, captures: caps})
		}
	}

	for _, pm := range pending {
		if err := ex.apply(pm); err != nil {
			label := pm.stanza.name
			if label == "" {
				label = "(unnamed)"
			}
			return nil, fmt.Errorf("stanza %s: %w", label, err)
		}
	}
	return ex.g, nil
}

// ensure returns the graph node for n, creating it on first reference.
func (ex *execution) ensure(n tree_sitter.Node) *graph.Node {
	if i, ok := ex.byNode[n.Id()]; ok {
		return ex.g.At(i)
	}
	node := ex.g.AddNode()
	ex.byNode[n.Id()] = int(node.ID)
	ex.syntax = append(ex.syntax, n)
	return node
}

// lookup returns the graph nodes created for every node of capture. A
// captured syntax node without a graph node is an error.
func (ex *execution) lookup(caps map[string][]tree_sitter.Node, capture string) ([]*graph.Node, error) {
	if capture == RootRef {
		if ex.g.Len() == 0 {
			return nil, fmt.Errorf("no root node")
		}
		return []*graph.Node{ex.g.At(0)}, nil
	}
	var out []*graph.Node
	for _, n := range caps[capture] {
		i, ok := ex.byNode[n.Id()]
		if !ok {
			return nil, fmt.Errorf("no graph node for @%s (%s at %d:%d)",
				capture, n.Kind(), n.StartPosition().Row, n.StartPosition().Column)
		}
		out = append(out, ex.g.At(i))
	}
	return out, nil
}

func guarded(caps map[string][]tree_sitter.Node, when []string) bool {
	for _, w := range when {
		if len(caps[w]) == 0 {
			return false
		}
	}
	return true
}

func (ex *execution) apply(pm pendingMatch) error {
	sc := &scope{src: ex.src, vars: ex.vars, captures: pm.captures}

	for _, op := range pm.stanza.attrs {
		if !guarded(pm.captures, op.when) {
			continue
		}
		targets, err := ex.lookup(pm.captures, op.node)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			continue
		}
		values, err := evalAll(sc, op.set)
		if err != nil {
			return err
		}
		for _, target := range targets {
			for k, v := range values {
				target.Attrs[k] = v
			}
			for _, sh := range op.apply {
				bound := &scope{
					src:    ex.src,
					vars:   ex.vars,
					locals: map[string]value{sh.param: {nodes: []tree_sitter.Node{ex.syntax[target.ID]}}},
				}
				attrs, err := evalAll(bound, sh.attrs)
				if err != nil {
					return fmt.Errorf("shorthand %s: %w", sh.name, err)
				}
				for k, v := range attrs {
					target.Attrs[k] = v
				}
			}
		}
	}

	for _, op := range pm.stanza.edges {
		if !guarded(pm.captures, op.when) {
			continue
		}
		sources, err := ex.lookup(pm.captures, op.from)
		if err != nil {
			return err
		}
		sinks, err := ex.lookup(pm.captures, op.to)
		if err != nil {
			return err
		}
		if len(sources) == 0 || len(sinks) == 0 {
			continue
		}
		values, err := evalAll(sc, op.set)
		if err != nil {
			return err
		}
		for _, from := range sources {
			for _, to := range sinks {
				attrs := make(graph.Attrs, len(values))
				for k, v := range values {
					attrs[k] = v
				}
				from.AddEdge(to.ID, attrs)
			}
		}
	}
	return nil
}

func evalAll(sc *scope, set []assignment) (graph.Attrs, error) {
	out := make(graph.Attrs, len(set))
	for _, a := range set {
		v, err := a.expr.eval(sc)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.key, err)
		}
		gv, err := v.storable()
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.key, err)
		}
		out[a.key] = gv
	}
	return out, nil
}
