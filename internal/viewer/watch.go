package viewer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more changes before
// reporting.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to files with one extension under a directory
// tree. New directories are watched as they appear and hidden directories
// are skipped.
type Watcher struct {
	root     string
	ext      string
	debounce time.Duration
}

// NewWatcher watches root for files ending in "."+ext. A debounce <= 0 uses
// DefaultDebounce.
func NewWatcher(root, ext string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, ext: "." + strings.TrimPrefix(ext, "."), debounce: debounce}
}

// Watch blocks until ctx is cancelled, calling onChange with the changed
// paths once no further change arrived for the debounce window. onChange
// runs on the watching goroutine.
func (w *Watcher) Watch(ctx context.Context, onChange func(paths []string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.root); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !hiddenDir(filepath.Base(event.Name)) {
						_ = w.addRecursive(fsw, event.Name)
					}
					continue
				}
			}
			if filepath.Ext(event.Name) != w.ext || event.Op == fsnotify.Chmod {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			onChange(paths)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && hiddenDir(d.Name()) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

func hiddenDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
