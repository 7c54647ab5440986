package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

// ConfigWatcher calls onChange after any of the watched files is written,
// created or renamed into place. Bursts of events within watchDebounce
// collapse into one call.
type ConfigWatcher struct {
	onChange func()
	logger   *slog.Logger
	debounce time.Duration

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool

	watcher *fsnotify.Watcher
}

// NewConfigWatcher creates a watcher. Directories are watched rather than
// files so editors that replace the file on save are still seen.
func NewConfigWatcher(onChange func(), logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &ConfigWatcher{
		onChange: onChange,
		logger:   logger,
		debounce: watchDebounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		watcher:  w,
	}, nil
}

// SetFiles replaces the watched file set. Missing directories are skipped.
func (w *ConfigWatcher) SetFiles(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Debug("config watch: cannot watch directory", "dir", dir, "error", err)
			continue
		}
		w.dirs[dir] = true
	}
	w.files = files
}

func (w *ConfigWatcher) watched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

// Run handles events until ctx is cancelled.
func (w *ConfigWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.watched(event.Name) {
				continue
			}
			w.logger.Debug("config watch: change", "file", event.Name, "op", event.Op.String())

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}
