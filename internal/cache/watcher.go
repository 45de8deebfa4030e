package cache

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher refreshes cached snapshots shortly after files change under the
// watched roots, so the next request finds a warm graph. The per-request
// signature check stays authoritative; a missed event only costs latency.
type Watcher struct {
	cache    *GraphCache
	roots    []string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

func NewWatcher(c *GraphCache, debounce time.Duration, logger *slog.Logger, roots ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	w := &Watcher{cache: c, roots: roots, debounce: debounce, logger: logger, watcher: fw}
	for _, root := range roots {
		w.addTree(root)
	}
	return w, nil
}

// addTree watches dir and every directory below it. Missing roots are skipped.
func (w *Watcher) addTree(dir string) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Debug("watch failed", "path", path, "error", err)
		}
		return nil
	})
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				w.addTree(ev.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timerC:
			timer, timerC = nil, nil
			w.logger.Debug("source files changed, refreshing", "keys", w.cache.Keys())
			w.cache.Refresh(ctx)
		}
	}
}
