// Package engine runs the extraction pipeline: crawl a directory, parse every
// accepted file, select sub-trees with each mapping's pattern, build a graph
// from every sub-tree with the mapping's script, and merge the graphs into
// one identifier space.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/draveur/internal/crawl"
	"github.com/dusk-indust/draveur/internal/graph"
	"github.com/dusk-indust/draveur/internal/lang"
	"github.com/dusk-indust/draveur/internal/parse"
	"github.com/dusk-indust/draveur/internal/source"
)

const tracerName = "github.com/dusk-indust/draveur/internal/engine"

// ErrNoMappings is returned by Run when no mapping was added.
var ErrNoMappings = errors.New("engine: no mappings")

// Result is the outcome of one run. It is populated even when Run also
// returns an error.
type Result struct {
	Graphs  []*graph.Graph
	Files   int // files read and parsed without error
	Failed  int // files whose processing failed
	Matches int // sub-trees selected across all mappings
	Skipped int // matches dropped under the Skip policy
	Foreign int // edges added by the linking pass
}

// Nodes returns the total node count of the result.
func (r *Result) Nodes() int {
	n := 0
	for _, g := range r.Graphs {
		n += g.Len()
	}
	return n
}

type mapping struct {
	name    string
	pattern *tree_sitter.Query
	script  lang.Script
	target  string
}

type linkKeys struct {
	leaf string
	root string
}

// Engine holds the compiled mappings of one language. Mappings are added
// before the first Run; Run may then be called repeatedly, but not
// concurrently.
type Engine struct {
	lang     lang.Language
	mappings []*mapping

	threads  int
	policy   ErrorPolicy
	buffer   int
	hidden   bool
	noIgnore bool
	link     *linkKeys

	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	progress *ProgressReporter

	open func(path string, size int64) (*source.Buffer, error)
}

// New returns an engine for l without mappings.
func New(l lang.Language, opts ...Option) *Engine {
	e := &Engine{
		lang:   l,
		buffer: 64,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		open:   source.Open,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Language returns the engine's language.
func (e *Engine) Language() lang.Language { return e.lang }

// Add compiles m and appends it to the engine's mappings.
func (e *Engine) Add(m lang.Mapping) error {
	q, err := e.lang.CompilePattern(m.Pattern)
	if err != nil {
		return err
	}
	if m.Target != "" && !slices.Contains(q.CaptureNames(), m.Target) {
		q.Close()
		return &lang.Error{
			Language: e.lang.Name(),
			Op:       lang.OpPattern,
			Text:     m.Pattern,
			Err:      fmt.Errorf("no capture named @%s", m.Target),
		}
	}
	s, err := e.lang.CompileScript(m.Script)
	if err != nil {
		q.Close()
		return err
	}
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("#%d", len(e.mappings))
	}
	e.mappings = append(e.mappings, &mapping{name: name, pattern: q, script: s, target: m.Target})
	return nil
}

// AddBuiltin adds every built-in mapping of the engine's language.
func (e *Engine) AddBuiltin() error {
	for _, m := range e.lang.Mappings() {
		if err := e.Add(m); err != nil {
			return fmt.Errorf("builtin mapping %s: %w", m.Name, err)
		}
	}
	return nil
}

// Close releases the compiled patterns and scripts.
func (e *Engine) Close() {
	for _, m := range e.mappings {
		m.pattern.Close()
		m.script.Close()
	}
	e.mappings = nil
}

// Run extracts the graphs of every accepted file under root. The first
// error recorded during the run is returned together with the graphs of
// every file that succeeded.
func (e *Engine) Run(ctx context.Context, root string) (*Result, error) {
	if len(e.mappings) == 0 {
		return nil, ErrNoMappings
	}
	threads := e.threads
	if threads <= 0 {
		threads = crawl.DefaultThreads()
	}

	pool := parse.NewPool(threads, e.lang.NewParser)
	defer pool.Close()

	res := &Result{}
	out := make(chan []byte, e.buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.collect(out, res)
	}()

	var files, failed, matches, skipped atomic.Int64
	opts := crawl.Options{
		Root:       root,
		Threads:    threads,
		Extensions: []string{e.lang.Extension()},
		Hidden:     e.hidden,
		NoIgnore:   e.noIgnore,
	}
	err := crawl.Run(ctx, opts,
		func(ctx context.Context, worker int, entry crawl.Entry) ([][]byte, error) {
			st, err := e.file(ctx, pool, worker, entry)
			matches.Add(int64(st.matches))
			skipped.Add(int64(st.skipped))
			if err != nil {
				failed.Add(1)
				e.progress.Emit(ProgressEvent{Path: entry.Path, Status: ProgressFailed, Matches: st.matches, Message: err.Error()})
				return nil, err
			}
			files.Add(1)
			e.progress.Emit(ProgressEvent{Path: entry.Path, Matches: st.matches, Graphs: len(st.graphs)})
			return st.graphs, nil
		},
		crawl.VisitorFunc[[][]byte](func(graphs [][]byte) {
			for _, data := range graphs {
				out <- data
			}
		}),
	)
	close(out)
	<-done

	res.Files = int(files.Load())
	res.Failed = int(failed.Load())
	res.Matches = int(matches.Load())
	res.Skipped = int(skipped.Load())

	if e.link != nil {
		res.Foreign = graph.LinkByAttr(res.Graphs, e.link.leaf, e.link.root)
		e.metrics.linked(res.Foreign)
	}

	e.logger.Debug("run finished",
		slog.String("root", root),
		slog.Int("files", res.Files),
		slog.Int("failed", res.Failed),
		slog.Int("matches", res.Matches),
		slog.Int("graphs", len(res.Graphs)),
	)
	return res, err
}

// collect drains encoded graphs and merges them into res. It is the only
// goroutine that touches the allocator.
func (e *Engine) collect(in <-chan []byte, res *Result) {
	alloc := graph.NewAllocator(0)
	for data := range in {
		g, err := graph.Merge(data, alloc)
		if err != nil {
			e.logger.Error("discarding malformed graph", slog.String("error", err.Error()))
			continue
		}
		res.Graphs = append(res.Graphs, g)
		e.metrics.merged(g.Len())
	}
}
