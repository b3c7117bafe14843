// Package crawl walks a directory tree and fans matching files out to a
// fixed set of workers.
package crawl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ThreadsEnv overrides the default worker count when set to a positive
// integer.
const ThreadsEnv = "THREADS"

// DefaultThreads returns the worker count from THREADS, falling back to the
// number of usable CPUs.
func DefaultThreads() int {
	if v := os.Getenv(ThreadsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return max(runtime.GOMAXPROCS(0), 1)
}

// Entry is one file accepted by the crawl.
type Entry struct {
	Path string // path as reached from the crawl root
	Rel  string // slash-separated path relative to the root
	Size int64
}

// Options configures a crawl.
type Options struct {
	Root       string
	Threads    int      // <= 0 uses DefaultThreads
	Extensions []string // accepted file extensions without the dot; empty accepts all
	Hidden     bool     // include dot-files and dot-directories
	NoIgnore   bool     // disable .gitignore and .ignore handling
}

// WalkError reports a failure of the directory walk itself.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// FileFunc processes one file on the given worker. The worker index is in
// [0, Threads) and a given index is never used by two goroutines at once.
type FileFunc[T any] func(ctx context.Context, worker int, e Entry) (T, error)

// Visitor receives the result of every file processed without error.
// Visit is called concurrently from all workers.
type Visitor[T any] interface {
	Visit(T)
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc[T any] func(T)

// Visit calls f(v).
func (f VisitorFunc[T]) Visit(v T) { f(v) }

// Run walks opts.Root and calls fn for every accepted file on one of
// opts.Threads workers, handing each result to sink. A failing file does not
// stop the crawl: the first error is kept, later ones are dropped, and the
// kept error is returned once the walk has finished. ctx is only consulted
// before the walk starts.
func Run[T any](ctx context.Context, opts Options, fn FileFunc[T], sink Visitor[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(opts.Root)
	if err != nil {
		return &WalkError{Path: opts.Root, Err: err}
	}
	if !info.IsDir() {
		return &WalkError{Path: opts.Root, Err: fmt.Errorf("not a directory")}
	}

	threads := opts.Threads
	if threads <= 0 {
		threads = DefaultThreads()
	}

	var first FirstError
	entries := make(chan Entry, threads*4)

	var g errgroup.Group
	g.Go(func() error {
		defer close(entries)
		walk(opts, &first, entries)
		return nil
	})
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			for e := range entries {
				res, err := fn(ctx, w, e)
				if err != nil {
					first.Set(err)
					continue
				}
				sink.Visit(res)
			}
			return nil
		})
	}
	_ = g.Wait()
	return first.Err()
}

// walk sends every accepted file of opts.Root to out. Errors below the root
// are recorded in first and the affected entry is skipped.
func walk(opts Options, first *FirstError, out chan<- Entry) {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.TrimPrefix(ext, ".")] = true
	}
	ignores := newIgnoreStack()

	_ = filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			first.Set(&WalkError{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(opts.Root, path)
		if relErr != nil {
			first.Set(&WalkError{Path: path, Err: relErr})
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				if !opts.NoIgnore {
					if err := ignores.load(opts.Root, ""); err != nil {
						first.Set(&WalkError{Path: path, Err: err})
					}
				}
				return nil
			}
			if (!opts.Hidden && hidden(d.Name())) || (!opts.NoIgnore && ignores.ignored(rel, true)) {
				return fs.SkipDir
			}
			if !opts.NoIgnore {
				if err := ignores.load(opts.Root, rel); err != nil {
					first.Set(&WalkError{Path: path, Err: err})
				}
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !opts.Hidden && hidden(d.Name()) {
			return nil
		}
		if len(exts) > 0 && !exts[strings.TrimPrefix(filepath.Ext(path), ".")] {
			return nil
		}
		if !opts.NoIgnore && ignores.ignored(rel, false) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			first.Set(&WalkError{Path: path, Err: err})
			return nil
		}
		out <- Entry{Path: path, Rel: rel, Size: info.Size()}
		return nil
	})
}
