// Package viewer serves the latest graphs of a watched directory over HTTP
// and pushes every re-extraction to websocket clients.
package viewer

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dusk-indust/draveur/internal/engine"
	"github.com/dusk-indust/draveur/internal/graph"
)

//go:embed static
var static embed.FS

// Message types sent to websocket clients.
const (
	TypeGraph  = "graph"
	TypeError  = "error"
	TypeReload = "reload" // sent by clients to request a re-extraction
)

// Message is the payload of /graphs and of every websocket message.
type Message struct {
	Type    string         `json:"type"`
	Data    []*graph.Graph `json:"data,omitempty"`
	Elapsed int64          `json:"elapsed,omitempty"` // milliseconds
	Message string         `json:"message,omitempty"`
}

// RunFunc runs one full extraction.
type RunFunc func(ctx context.Context) (*engine.Result, error)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server holds the latest extraction and the connected clients.
type Server struct {
	run    RunFunc
	store  graph.Store
	logger *slog.Logger
	hub    *hub

	// updates serializes extractions.
	updates sync.Mutex

	mu     sync.RWMutex
	latest []byte
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore keeps store in sync with every successful extraction.
func WithStore(store graph.Store) Option {
	return func(s *Server) { s.store = store }
}

// New returns a server that extracts with run.
func New(run RunFunc, opts ...Option) *Server {
	s := &Server{run: run, logger: slog.Default(), hub: newHub()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update runs an extraction, records it as the latest and broadcasts it.
// A run that fails with a partial result is still sent as a graph message
// carrying the error text.
func (s *Server) Update(ctx context.Context) Message {
	s.updates.Lock()
	defer s.updates.Unlock()

	start := time.Now()
	res, err := s.run(ctx)
	elapsed := time.Since(start)

	var msg Message
	switch {
	case res == nil:
		if err == nil {
			err = errors.New("extraction returned no result")
		}
		msg = Message{Type: TypeError, Message: err.Error()}
		s.logger.Error("extraction failed", slog.String("error", err.Error()))
	default:
		msg = Message{Type: TypeGraph, Data: res.Graphs, Elapsed: elapsed.Milliseconds()}
		if msg.Data == nil {
			msg.Data = []*graph.Graph{}
		}
		if err != nil {
			msg.Message = err.Error()
			s.logger.Warn("extraction finished with errors", slog.String("error", err.Error()))
		}
		if s.store != nil {
			if err := s.store.Replace(ctx, res.Graphs); err != nil {
				s.logger.Error("store graphs", slog.String("error", err.Error()))
			}
		}
		s.logger.Info("graphs updated",
			slog.Int("graphs", len(res.Graphs)),
			slog.Int("nodes", res.Nodes()),
			slog.Duration("elapsed", elapsed),
		)
	}

	data, mErr := json.Marshal(msg)
	if mErr != nil {
		s.logger.Error("encode message", slog.String("error", mErr.Error()))
		return msg
	}
	s.mu.Lock()
	s.latest = data
	s.mu.Unlock()
	s.hub.broadcast(data)
	return msg
}

// Handler returns the HTTP routes: the page at /, the latest message at
// /graphs and the websocket at /ws.
func (s *Server) Handler() http.Handler {
	page, _ := fs.Sub(static, "static")
	mux := http.NewServeMux()
	mux.Handle("GET /", http.FileServerFS(page))
	mux.HandleFunc("GET /graphs", s.handleGraphs)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

func (s *Server) snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) handleGraphs(w http.ResponseWriter, _ *http.Request) {
	data := s.snapshot()
	if data == nil {
		http.Error(w, "no extraction yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade the websocket", slog.String("error", err.Error()))
		return
	}
	c := s.hub.add(conn)
	defer s.hub.remove(c)
	s.logger.Debug("websocket client connected", slog.String("remote", r.RemoteAddr))

	if data := s.snapshot(); data != nil {
		c.enqueue(data)
	}

	for {
		var req Message
		if err := conn.ReadJSON(&req); err != nil {
			s.logger.Debug("websocket client disconnected", slog.String("error", err.Error()))
			return
		}
		if req.Type == TypeReload {
			s.Update(context.WithoutCancel(r.Context()))
		}
	}
}

// Serve runs an initial extraction, then serves Handler on addr and re-runs
// the extraction whenever w reports a change. It returns when ctx is
// cancelled.
func (s *Server) Serve(ctx context.Context, addr string, w *Watcher) error {
	s.Update(ctx)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
		s.hub.closeAll()
	}()

	if w != nil {
		go func() {
			err := w.Watch(ctx, func(paths []string) {
				s.logger.Info("files changed", slog.Int("count", len(paths)), slog.String("first", paths[0]))
				s.Update(ctx)
			})
			if err != nil {
				s.logger.Error("watch stopped", slog.String("error", err.Error()))
			}
		}()
	}

	s.logger.Info("viewer listening", slog.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
