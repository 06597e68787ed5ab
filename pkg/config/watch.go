package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the freshly loaded configuration after a change to
// the watched file.
type ReloadFunc func(cfg *Config)

// Watcher observes a configuration file and reloads it on change, with
// debouncing to absorb editor save storms. A reload that fails to parse or
// validate is logged and dropped; the previous configuration stays in
// effect.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	timer   *time.Timer
}

// NewWatcher creates a watcher for the given configuration file. A zero
// debounce defaults to 200ms.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files on save
	// and a file-level watch goes stale after the first rename.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		path:     path,
		debounce: debounce,
		watcher:  fw,
	}, nil
}

// Watch blocks, reloading the configuration and invoking onReload after
// each settled change, until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, onReload ReloadFunc) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	slog.Info("configuration watcher started",
		"path", w.path,
		"debounce", w.debounce,
	)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			slog.Info("configuration watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			slog.Debug("configuration file changed", "op", event.Op.String())
			w.trigger(onReload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching despite errors.
			slog.Error("configuration watcher error", "error", err)
		}
	}
}

// trigger schedules a debounced reload.
func (w *Watcher) trigger(onReload ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		cfg, err := LoadConfigWithEnvOverrides(w.path)
		if err != nil {
			slog.Error("configuration reload failed, keeping previous configuration",
				"path", w.path,
				"error", err,
			)
			return
		}
		slog.Info("configuration reloaded", "path", w.path)
		onReload(cfg)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Close releases the underlying file watcher.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}
