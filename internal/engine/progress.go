package engine

import "fmt"

// ProgressStatus is the outcome of one file.
type ProgressStatus int

const (
	ProgressDone ProgressStatus = iota
	ProgressFailed
)

// ProgressEvent reports one processed file.
type ProgressEvent struct {
	Path    string
	Status  ProgressStatus
	Matches int
	Graphs  int
	Message string // error text of a failed file
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	ch chan ProgressEvent
}

// NewProgressReporter creates a ProgressReporter with a buffered channel of
// size n, 64 when n <= 0.
func NewProgressReporter(n int) *ProgressReporter {
	if n <= 0 {
		n = 64
	}
	return &ProgressReporter{ch: make(chan ProgressEvent, n)}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	if pr == nil {
		return
	}
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. Emit must not be called after
// Close.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressDone:
		return fmt.Sprintf("  ✓ %s (%d matches, %d graphs)", event.Path, event.Matches, event.Graphs)
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Path, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status)", event.Path)
	}
}
