// Package watch reruns work when a trace file changes on disk.
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

// DefaultDebounce is how long a file must stay quiet before a change fires.
const DefaultDebounce = 300 * time.Millisecond

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Changes       int
	Errors        int
	LastEventTime time.Time
	LastEventType string
}

// Watcher watches one file. The parent directory is watched so editors
// that replace the file by rename are still seen.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	logger   *zap.Logger
	stats    Stats
}

// New starts watching path. Events are queued from this point on, before
// Run is called.
func New(path string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Debug("watching", zap.String("path", abs))
	return &Watcher{watcher: fw, path: abs, debounce: debounce, logger: logger}, nil
}

// Run blocks until ctx is done, calling onChange once each burst of
// writes to the file has settled. Errors from onChange are logged and
// counted; watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	ticker := time.NewTicker(max(w.debounce/4, time.Millisecond))
	defer ticker.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				pending = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case now := <-ticker.C:
			if pending.IsZero() || now.Sub(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			w.mu.Lock()
			w.stats.Changes++
			w.mu.Unlock()
			if err := onChange(ctx); err != nil {
				w.logger.Warn("rerun failed", zap.String("path", w.path), zap.Error(err))
				w.mu.Lock()
				w.stats.Errors++
				w.mu.Unlock()
			}
		}
	}
}

// handle records an event and reports whether it touches the file with
// content that can be reread.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	var kind string
	switch {
	case event.Has(fsnotify.Create):
		kind = "create"
	case event.Has(fsnotify.Write):
		kind = "modify"
	case event.Has(fsnotify.Rename), event.Has(fsnotify.Remove):
		// a rename-over shows up as a later create
		kind = "remove"
	default:
		return false
	}
	w.logger.Debug("trace file event", zap.String("type", kind))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventType = kind
	return kind != "remove"
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
