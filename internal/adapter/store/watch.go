package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads h each time an index is published at its path. Bursts of
// events within debounce collapse into one reload. A failed reload keeps the
// current snapshot. The returned channel closes when ctx is done.
func (h *Holder) Watch(ctx context.Context, debounce time.Duration) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch index: %w", err)
	}
	// Watch the directory: publishing renames a new file over the old one.
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch index: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()

		target := filepath.Clean(h.path)
		timer := time.NewTimer(debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				timer.Reset(debounce)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("index watcher error", slog.Any("error", err))
			case <-timer.C:
				if err := h.Reload(); err != nil {
					slog.Warn("index reload failed, keeping current snapshot", slog.Any("error", err))
					continue
				}
				slog.Info("vector index reloaded",
					slog.Uint64("generation", h.Generation()), slog.Int("count", h.Len()))
			}
		}
	}()
	return done, nil
}
