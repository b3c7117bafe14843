package script

import (
	"fmt"
	"slices"
	"sort"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Default globals supplied to every execution.
const (
	GlobalFilename = "global_filename"
	GlobalRow      = "global_row"
	GlobalColumn   = "global_column"
)

var defaultGlobals = []string{GlobalFilename, GlobalRow, GlobalColumn}

// RootRef may stand in for a capture name in node, from and to fields. It
// refers to the first graph node created.
const RootRef = "$root"

// Program is a compiled script. It is immutable and safe for concurrent
// use once compiled.
type Program struct {
	stanzas  []*stanza
	globals  []string
	declared bool
}

type stanza struct {
	name  string
	query *tree_sitter.Query
	nodes []string
	attrs []attrOp
	edges []edgeOp
}

type assignment struct {
	key  string
	expr expr
}

type shorthand struct {
	name  string
	param string
	attrs []assignment
}

type attrOp struct {
	node  string
	when  []string
	set   []assignment
	apply []*shorthand
}

type edgeOp struct {
	from string
	to   string
	when []string
	set  []assignment
}

// Compile parses and validates a script against language. Every stanza query
// is compiled once here.
func Compile(language *tree_sitter.Language, text string) (*Program, error) {
	doc, err := decode(text)
	if err != nil {
		return nil, err
	}

	p := &Program{globals: defaultGlobals}
	if len(doc.Globals) > 0 {
		p.globals = doc.Globals
		p.declared = true
	}

	shorthands := make(map[string]*shorthand, len(doc.Shorthands))
	for name, sd := range doc.Shorthands {
		sh, err := compileShorthand(name, sd, p.globals)
		if err != nil {
			p.Close()
			return nil, err
		}
		shorthands[name] = sh
	}

	for i, sd := range doc.Stanzas {
		st, err := compileStanza(language, sd, shorthands, p.globals)
		if err != nil {
			p.Close()
			label := sd.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("stanza %s: %w", label, err)
		}
		p.stanzas = append(p.stanzas, st)
	}
	return p, nil
}

// Close releases the compiled queries.
func (p *Program) Close() {
	for _, st := range p.stanzas {
		st.query.Close()
	}
	p.stanzas = nil
}

// Globals returns the global variable names the program reads.
func (p *Program) Globals() []string { return p.globals }

func compileAssignments(set map[string]any) ([]assignment, error) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]assignment, 0, len(keys))
	for _, k := range keys {
		e, err := compileValue(set[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out = append(out, assignment{key: k, expr: e})
	}
	return out, nil
}

func compileShorthand(name string, sd shorthandDoc, globals []string) (*shorthand, error) {
	if sd.Param == "" {
		return nil, fmt.Errorf("shorthand %s: missing param", name)
	}
	attrs, err := compileAssignments(sd.Attrs)
	if err != nil {
		return nil, fmt.Errorf("shorthand %s: %w", name, err)
	}
	var r refs
	for _, a := range attrs {
		collectRefs(a.expr, &r)
	}
	if len(r.captures) > 0 {
		return nil, fmt.Errorf("shorthand %s: captures are not allowed, use $%s", name, sd.Param)
	}
	for _, v := range r.vars {
		if v != sd.Param && !slices.Contains(globals, v) {
			return nil, fmt.Errorf("shorthand %s: undefined variable $%s", name, v)
		}
	}
	return &shorthand{name: name, param: sd.Param, attrs: attrs}, nil
}

func compileStanza(language *tree_sitter.Language, sd stanzaDoc, shorthands map[string]*shorthand, globals []string) (*stanza, error) {
	q, qerr := tree_sitter.NewQuery(language, sd.Query)
	if qerr != nil {
		return nil, fmt.Errorf("query: %s", qerr.Error())
	}
	st := &stanza{name: sd.Name, query: q, nodes: sd.Nodes}
	names := q.CaptureNames()

	ok := true
	var bad string
	check := func(capture string) {
		if capture == RootRef {
			return
		}
		if ok && !slices.Contains(names, capture) {
			ok, bad = false, capture
		}
	}
	for _, n := range sd.Nodes {
		check(n)
	}

	var r refs
	for _, ad := range sd.Attrs {
		check(ad.Node)
		for _, w := range ad.When {
			check(w)
		}
		set, err := compileAssignments(ad.Set)
		if err != nil {
			q.Close()
			return nil, err
		}
		op := attrOp{node: ad.Node, when: ad.When, set: set}
		for _, name := range ad.Apply {
			sh, found := shorthands[name]
			if !found {
				q.Close()
				return nil, fmt.Errorf("unknown shorthand %s", name)
			}
			op.apply = append(op.apply, sh)
		}
		for _, a := range set {
			collectRefs(a.expr, &r)
		}
		st.attrs = append(st.attrs, op)
	}
	for _, ed := range sd.Edges {
		check(ed.From)
		check(ed.To)
		for _, w := range ed.When {
			check(w)
		}
		set, err := compileAssignments(ed.Set)
		if err != nil {
			q.Close()
			return nil, err
		}
		for _, a := range set {
			collectRefs(a.expr, &r)
		}
		st.edges = append(st.edges, edgeOp{from: ed.From, to: ed.To, when: ed.When, set: set})
	}
	for _, c := range r.captures {
		check(c)
	}
	if !ok {
		q.Close()
		return nil, fmt.Errorf("unknown capture @%s", bad)
	}
	for _, v := range r.vars {
		if !slices.Contains(globals, v) {
			q.Close()
			return nil, fmt.Errorf("undefined variable $%s", v)
		}
	}
	return st, nil
}
