package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/draveur/internal/crawl"
	"github.com/dusk-indust/draveur/internal/graph"
	"github.com/dusk-indust/draveur/internal/lang"
	"github.com/dusk-indust/draveur/internal/parse"
)

// ScriptError reports a script failure on one matched sub-tree.
type ScriptError struct {
	Mapping string
	Path    string
	Row     uint32
	Column  uint32
	Source  string
	Err     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("mapping %s: script failed at %s:%d:%d: %v\n%s",
		e.Mapping, e.Path, e.Row+1, e.Column+1, e.Err, e.Source)
}

func (e *ScriptError) Unwrap() error { return e.Err }

type fileStats struct {
	graphs  [][]byte
	matches int
	skipped int
}

// file processes one crawled file on worker and returns its encoded graphs.
func (e *Engine) file(ctx context.Context, pool *parse.Pool, worker int, entry crawl.Entry) (st fileStats, err error) {
	_, span := e.tracer.Start(ctx, "engine.file", trace.WithAttributes(
		attribute.String("file.path", entry.Path),
		attribute.Int64("file.size", entry.Size),
		attribute.Int("worker", worker),
	))
	start := time.Now()
	defer func() {
		e.metrics.file(err == nil, time.Since(start))
		span.SetAttributes(attribute.Int("matches", st.matches), attribute.Int("graphs", len(st.graphs)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	parser, err := pool.Get(worker)
	if err != nil {
		return st, err
	}
	buf, err := e.open(entry.Path, entry.Size)
	if err != nil {
		return st, err
	}
	defer buf.Close()

	src := buf.Bytes()
	tree, err := parse.Tree(parser, entry.Path, src)
	if err != nil {
		return st, err
	}
	defer tree.Close()

	for _, m := range e.mappings {
		for match := range parse.Matches(m.pattern, tree.RootNode(), src) {
			for _, view := range match.Targets(m.target) {
				st.matches++
				e.metrics.match()
				data, err := e.build(parser, m, entry.Path, view)
				if err != nil {
					if !e.scriptFailed(err) {
						return st, err
					}
					st.skipped++
					continue
				}
				if data != nil {
					st.graphs = append(st.graphs, data)
				}
			}
		}
	}
	e.logger.Debug("file processed",
		slog.String("path", entry.Path),
		slog.Int("matches", st.matches),
		slog.Int("graphs", len(st.graphs)),
	)
	return st, nil
}

// build re-parses the bytes of view on its own and runs the mapping's script
// over the resulting tree. It returns nil when the script creates no node.
func (e *Engine) build(parser *tree_sitter.Parser, m *mapping, path string, view parse.View) ([]byte, error) {
	sub := view.Bytes()
	tree := parser.Parse(sub, nil)
	if tree == nil {
		return nil, &parse.ParseError{Path: path, Start: view.Node.StartByte(), End: view.Node.EndByte()}
	}
	defer tree.Close()

	globals := lang.Globals{Filename: path, Row: view.StartRow(), Column: view.StartColumn()}
	g, err := m.script.Execute(tree, sub, globals.Vars())
	if err != nil {
		return nil, &ScriptError{
			Mapping: m.name,
			Path:    path,
			Row:     globals.Row,
			Column:  globals.Column,
			Source:  string(sub),
			Err:     err,
		}
	}
	if g.Len() == 0 {
		return nil, nil
	}
	return graph.Encode(g)
}

// scriptFailed applies the error policy to a build failure. It returns true
// when the match should be dropped and processing continue. Errors other
// than script failures are never skipped.
func (e *Engine) scriptFailed(err error) bool {
	var se *ScriptError
	if !errors.As(err, &se) {
		return false
	}
	if e.policy == Abort {
		panic(se)
	}
	e.metrics.skip()
	e.logger.Warn("skipping match after script failure",
		slog.String("mapping", se.Mapping),
		slog.String("path", se.Path),
		slog.Int("row", int(se.Row)),
		slog.Int("column", int(se.Column)),
		slog.String("error", se.Err.Error()),
	)
	return true
}
