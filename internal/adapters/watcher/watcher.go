// Package watcher reports debounced file system changes for mk watch.
package watcher

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/mk/internal/core/domain"
	"go.trai.ch/mk/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

// DefaultDebounceWindow is the default time window for debouncing file events.
const DefaultDebounceWindow = 100 * time.Millisecond

// shouldSkipDirectories are directories that are never watched.
var shouldSkipDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	window    time.Duration
	logger    ports.Logger

	mu     sync.Mutex
	queue  [][]string
	notify chan struct{}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(window time.Duration, logger ports.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrWatchFailed.Error())
	}
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Watcher{
		fsWatcher: fsw,
		window:    window,
		logger:    logger,
		notify:    make(chan struct{}, 1),
	}, nil
}

// Watch adds every directory below root and starts delivering batches.
func (w *Watcher) Watch(ctx context.Context, root string) (<-chan []string, error) {
	for dir := range watchRecursively(root) {
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrWatchFailed.Error()), "dir", dir)
		}
	}

	out := make(chan []string)
	debouncer := NewDebouncer(w.window, w.enqueue)
	go w.processEvents(ctx, debouncer, out)
	return out, nil
}

// Close stops the watcher and releases all resources.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// enqueue runs on the debouncer's timer goroutine; it never blocks.
func (w *Watcher) enqueue(paths []string) {
	w.mu.Lock()
	w.queue = append(w.queue, paths)
	w.mu.Unlock()
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// take merges every queued batch into one.
func (w *Watcher) take() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var merged []string
	for _, batch := range w.queue {
		merged = append(merged, batch...)
	}
	w.queue = nil
	slices.Sort(merged)
	return slices.Compact(merged)
}

func (w *Watcher) processEvents(ctx context.Context, debouncer *Debouncer, out chan<- []string) {
	defer close(out)
	defer debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			debouncer.Add(event.Name)
			if event.Has(fsnotify.Create) {
				w.addIfDir(event.Name)
			}

		case <-w.notify:
			batch := w.take()
			if len(batch) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn(zerr.Wrap(err, domain.ErrWatchFailed.Error()).Error())
			}
		}
	}
}

func (w *Watcher) addIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || shouldSkipDirectories[info.Name()] {
		return
	}
	for dir := range watchRecursively(path) {
		_ = w.fsWatcher.Add(dir)
	}
}

// relevant drops pure attribute changes and the scripts mk writes itself.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	return !strings.HasPrefix(base, strings.TrimSuffix(domain.ScriptPattern, "*.sh"))
}

// watchRecursively walks the directory tree and yields all directories.
func watchRecursively(root string) iter.Seq[string] {
	return func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable directories are skipped
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && shouldSkipDirectories[d.Name()] {
				return fs.SkipDir
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
