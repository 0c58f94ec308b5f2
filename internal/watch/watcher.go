// Package watch re-runs a handler whenever one of a fixed set of files is
// written.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler is called with the watched path after it settles.
type Handler func(ctx context.Context, path string) error

// DefaultDebounce is how long a file must be quiet before the handler runs.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches the parent directories of its files so that saves done by
// rename are seen too.
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]string // cleaned absolute path → path as given
	handler  Handler
	logger   *zap.Logger
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
	stats   Stats
}

// Stats counts watcher activity.
type Stats struct {
	Events   int
	Runs     int
	Failures int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for paths. Nothing is observed until Run.
func New(paths []string, handler Handler, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	files := make(map[string]string, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		files[abs] = p
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		fs:       fsw,
		files:    files,
		handler:  handler,
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]struct{})
	for abs := range files {
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run processes events until ctx is cancelled, then releases the watcher.
// Handler errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	tick := w.debounce / 4
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	if _, ok := w.files[abs]; !ok {
		return
	}

	w.mu.Lock()
	w.stats.Events++
	w.pending[abs] = time.Now()
	w.mu.Unlock()
}

// flush runs the handler for every file that has been quiet long enough.
func (w *Watcher) flush(ctx context.Context) {
	now := time.Now()
	var ready []string

	w.mu.Lock()
	for abs, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, abs)
			delete(w.pending, abs)
		}
	}
	w.mu.Unlock()

	for _, abs := range ready {
		path := w.files[abs]
		w.logger.Debug("Input changed", zap.String("input", path))
		err := w.handler(ctx, path)

		w.mu.Lock()
		w.stats.Runs++
		if err != nil {
			w.stats.Failures++
		}
		w.mu.Unlock()

		if err != nil {
			w.logger.Error("Re-sanitize failed", zap.String("input", path), zap.Error(err))
		}
	}
}
