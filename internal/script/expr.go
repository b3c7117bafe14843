package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/dusk-indust/draveur/internal/graph"
)

// value is what an expression evaluates to: either a graph value or one or
// more syntax nodes.
type value struct {
	v     graph.Value
	nodes []tree_sitter.Node
}

func (v value) isSyntax() bool { return v.nodes != nil }

// expr is a compiled expression.
type expr interface {
	eval(sc *scope) (value, error)
}

type literal struct{ v graph.Value }

func (l literal) eval(*scope) (value, error) { return value{v: l.v}, nil }

type captureRef struct{ name string }

func (c captureRef) eval(sc *scope) (value, error) {
	nodes := sc.captures[c.name]
	if len(nodes) == 0 {
		return value{v: graph.Null()}, nil
	}
	return value{nodes: nodes}, nil
}

type varRef struct{ name string }

func (r varRef) eval(sc *scope) (value, error) {
	if v, ok := sc.locals[r.name]; ok {
		return v, nil
	}
	if v, ok := sc.vars[r.name]; ok {
		return value{v: v}, nil
	}
	return value{}, fmt.Errorf("undefined variable $%s", r.name)
}

type listExpr struct{ items []expr }

func (l listExpr) eval(sc *scope) (value, error) {
	items := make([]graph.Value, 0, len(l.items))
	for _, item := range l.items {
		v, err := item.eval(sc)
		if err != nil {
			return value{}, err
		}
		gv, err := v.storable()
		if err != nil {
			return value{}, err
		}
		items = append(items, gv)
	}
	return value{v: graph.List(items...)}, nil
}

type call struct {
	name string
	fn   function
	args []expr
}

func (c call) eval(sc *scope) (value, error) {
	args := make([]value, len(c.args))
	for i, a := range c.args {
		v, err := a.eval(sc)
		if err != nil {
			return value{}, err
		}
		args[i] = v
	}
	v, err := c.fn.impl(sc, args)
	if err != nil {
		return value{}, fmt.Errorf("(%s): %w", c.name, err)
	}
	return v, nil
}

// storable converts v into an attribute value. Syntax nodes cannot be
// stored.
func (v value) storable() (graph.Value, error) {
	if v.isSyntax() {
		return graph.Value{}, fmt.Errorf("syntax node of type %s is not a storable value", v.nodes[0].Kind())
	}
	return v.v, nil
}

// refs collects the captures and variables an expression references.
type refs struct {
	captures []string
	vars     []string
}

func collectRefs(e expr, r *refs) {
	switch e := e.(type) {
	case captureRef:
		r.captures = append(r.captures, e.name)
	case varRef:
		r.vars = append(r.vars, e.name)
	case listExpr:
		for _, item := range e.items {
			collectRefs(item, r)
		}
	case call:
		for _, a := range e.args {
			collectRefs(a, r)
		}
	}
}

// isExpression reports whether a YAML string is an expression rather than a
// literal.
func isExpression(s string) bool {
	return strings.HasPrefix(s, "(") || strings.HasPrefix(s, "@") || strings.HasPrefix(s, "$")
}

// compileValue turns a decoded YAML value into an expression.
func compileValue(raw any) (expr, error) {
	switch v := raw.(type) {
	case nil:
		return literal{graph.Null()}, nil
	case bool:
		return literal{graph.Bool(v)}, nil
	case int:
		if v < 0 || int64(v) > math.MaxUint32 {
			return nil, fmt.Errorf("integer %d out of u32 range", v)
		}
		return literal{graph.Uint(uint32(v))}, nil
	case float64:
		return nil, fmt.Errorf("non-integer number %v", v)
	case string:
		if isExpression(v) {
			return parseExpr(v)
		}
		return literal{graph.String(v)}, nil
	case []any:
		items := make([]expr, 0, len(v))
		for _, item := range v {
			e, err := compileValue(item)
			if err != nil {
				return nil, err
			}
			items = append(items, e)
		}
		return listExpr{items: items}, nil
	}
	return nil, fmt.Errorf("unsupported value %v of type %T", raw, raw)
}

// ---------------------------------------------------------------------------
// Expression parser
// ---------------------------------------------------------------------------

type tokenKind int

const (
	tokOpen tokenKind = iota
	tokClose
	tokString
	tokNumber
	tokCapture
	tokVar
	tokSymbol
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func tokenize(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokOpen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokClose, ")", i})
			i++
		case c == '"':
			start := i
			var sb strings.Builder
			i++
			closed := false
			for i < len(src) {
				ch := src[i]
				if ch == '"' {
					closed = true
					i++
					break
				}
				if ch == '\\' && i+1 < len(src) {
					switch src[i+1] {
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					default:
						sb.WriteByte(src[i+1])
					}
					i += 2
					continue
				}
				sb.WriteByte(ch)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string at %d", start)
			}
			toks = append(toks, token{tokString, sb.String(), start})
		case c == '@' || c == '$':
			start := i
			i++
			for i < len(src) && isIdentByte(src[i]) {
				i++
			}
			if i == start+1 {
				return nil, fmt.Errorf("empty name at %d", start)
			}
			kind := tokCapture
			if c == '$' {
				kind = tokVar
			}
			toks = append(toks, token{kind, src[start+1 : i], start})
		case c >= '0' && c <= '9':
			start := i
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			toks = append(toks, token{tokNumber, src[start:i], start})
		case isIdentByte(c):
			start := i
			for i < len(src) && isIdentByte(src[i]) {
				i++
			}
			toks = append(toks, token{tokSymbol, src[start:i], start})
		default:
			return nil, fmt.Errorf("unexpected %q at %d", c, i)
		}
	}
	return append(toks, token{tokEOF, "", len(src)}), nil
}

func isIdentByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return c == '_' || c == '-' || c == '.'
}

type exprParser struct {
	toks []token
	pos  int
}

// parseExpr compiles one expression.
func parseExpr(src string) (expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	p := &exprParser{toks: toks}
	e, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, fmt.Errorf("expression %q: trailing input at %d", src, t.pos)
	}
	return e, nil
}

func (p *exprParser) peek() token { return p.toks[p.pos] }

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) parse() (expr, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return literal{graph.String(t.text)}, nil
	case tokNumber:
		n, err := strconv.ParseUint(t.text, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("integer %s: %w", t.text, err)
		}
		return literal{graph.Uint(uint32(n))}, nil
	case tokCapture:
		return captureRef{name: t.text}, nil
	case tokVar:
		return varRef{name: t.text}, nil
	case tokSymbol:
		switch t.text {
		case "true":
			return literal{graph.Bool(true)}, nil
		case "false":
			return literal{graph.Bool(false)}, nil
		case "null":
			return literal{graph.Null()}, nil
		}
		return nil, fmt.Errorf("bare symbol %q at %d", t.text, t.pos)
	case tokOpen:
		head := p.next()
		if head.kind != tokSymbol {
			return nil, fmt.Errorf("expected function name at %d", head.pos)
		}
		fn, ok := functions[head.text]
		if !ok {
			return nil, fmt.Errorf("unknown function %q", head.text)
		}
		var args []expr
		for p.peek().kind != tokClose {
			if p.peek().kind == tokEOF {
				return nil, fmt.Errorf("unclosed call to %s", head.text)
			}
			a, err := p.parse()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		p.next()
		if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
			return nil, fmt.Errorf("%s: wrong number of arguments (%d)", head.text, len(args))
		}
		return call{name: head.text, fn: fn, args: args}, nil
	case tokClose:
		return nil, fmt.Errorf("unexpected ) at %d", t.pos)
	}
	return nil, fmt.Errorf("unexpected end of expression")
}
