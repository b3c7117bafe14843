package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the engine. A nil *Metrics
// records nothing.
type Metrics struct {
	files    *prometheus.CounterVec
	matches  prometheus.Counter
	skipped  prometheus.Counter
	graphs   prometheus.Counter
	nodes    prometheus.Counter
	foreign  prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics registers the engine collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		files: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "draveur",
			Subsystem: "engine",
			Name:      "files_total",
			Help:      "Files processed, by outcome",
		}, []string{"status"}),
		matches: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draveur",
			Subsystem: "engine",
			Name:      "matches_total",
			Help:      "Sub-trees selected by mapping patterns",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draveur",
			Subsystem: "engine",
			Name:      "script_failures_skipped_total",
			Help:      "Matches dropped after a script failure",
		}),
		graphs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draveur",
			Subsystem: "engine",
			Name:      "graphs_total",
			Help:      "Graphs merged into the result",
		}),
		nodes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draveur",
			Subsystem: "engine",
			Name:      "nodes_total",
			Help:      "Graph nodes merged into the result",
		}),
		foreign: f.NewCounter(prometheus.CounterOpts{
			Namespace: "draveur",
			Subsystem: "engine",
			Name:      "foreign_edges_total",
			Help:      "Edges added by the linking pass",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "draveur",
			Subsystem: "engine",
			Name:      "file_duration_seconds",
			Help:      "Time to read, parse and build one file",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) file(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.files.WithLabelValues(status).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) match() {
	if m != nil {
		m.matches.Inc()
	}
}

func (m *Metrics) skip() {
	if m != nil {
		m.skipped.Inc()
	}
}

func (m *Metrics) merged(nodes int) {
	if m == nil {
		return
	}
	m.graphs.Inc()
	m.nodes.Add(float64(nodes))
}

func (m *Metrics) linked(n int) {
	if m != nil {
		m.foreign.Add(float64(n))
	}
}
