package engine

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// ErrorPolicy decides what happens when a script fails on a matched
// sub-tree.
type ErrorPolicy int

const (
	// Abort panics with the error and the sub-tree source text.
	Abort ErrorPolicy = iota
	// Skip logs the failure and drops the match.
	Skip
)

func (p ErrorPolicy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// ParseErrorPolicy maps a configuration value to an ErrorPolicy. Empty
// means Abort.
func ParseErrorPolicy(s string) (ErrorPolicy, bool) {
	switch s {
	case "", "abort":
		return Abort, true
	case "skip":
		return Skip, true
	default:
		return Abort, false
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreads sets the worker count. n <= 0 uses crawl.DefaultThreads.
func WithThreads(n int) Option {
	return func(e *Engine) { e.threads = n }
}

// WithScriptErrorPolicy sets the script failure policy. The default is
// Abort.
func WithScriptErrorPolicy(p ErrorPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records run statistics into m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider sets the provider of the per-file spans. The default
// is the global otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithBuffer sets the capacity of the aggregation channel.
func WithBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.buffer = n
		}
	}
}

// WithHidden includes dot-files and dot-directories in the crawl.
func WithHidden(hidden bool) Option {
	return func(e *Engine) { e.hidden = hidden }
}

// WithNoIgnore disables .gitignore and .ignore handling.
func WithNoIgnore(noIgnore bool) Option {
	return func(e *Engine) { e.noIgnore = noIgnore }
}

// WithLink runs a linking pass after the merge, adding a foreign edge from
// every leaf whose leafAttr equals the rootAttr of another graph's root.
func WithLink(leafAttr, rootAttr string) Option {
	return func(e *Engine) {
		e.link = &linkKeys{leaf: leafAttr, root: rootAttr}
	}
}

// WithProgress emits one event per processed file to pr. Events are dropped
// while pr's buffer is full.
func WithProgress(pr *ProgressReporter) Option {
	return func(e *Engine) { e.progress = pr }
}
