// Package watcher provides debounced file system watching for the source
// files behind opened windows, so externally modified files can be flagged as
// stale.
package watcher

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/himena-app/himena/internal/log"
)

// Watcher monitors a set of source files and reports which one changed.
// Rapid consecutive writes to the same file coalesce into one notification.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	onChange  chan string
	done      chan struct{}

	mu     sync.Mutex
	files  map[string]struct{}
	dirs   map[string]int
	timers map[string]*time.Timer
}

// Config holds watcher configuration options.
type Config struct {
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig() Config {
	return Config{DebounceDur: 1 * time.Second}
}

// New creates a source-file watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan string, 16),
		done:      make(chan struct{}),
		files:     make(map[string]struct{}),
		dirs:      make(map[string]int),
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Start begins processing events. Returns the channel on which changed file
// paths are delivered.
func (w *Watcher) Start() <-chan string {
	go w.loop()
	return w.onChange
}

// Watch adds a file to the watched set. The containing directory is watched so
// that editors replacing the file with a rename are still observed.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; ok {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[abs] = struct{}{}
	log.Debug(log.CatWatch, "watching", "path", abs)
	return nil
}

// Unwatch removes a file from the watched set.
func (w *Watcher) Unwatch(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; !ok {
		return
	}
	delete(w.files, abs)

	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		_ = w.fsWatcher.Remove(dir)
	}
	if timer, ok := w.timers[abs]; ok {
		timer.Stop()
		delete(w.timers, abs)
	}
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()

	return w.fsWatcher.Close()
}

// loop processes file system events with per-file debouncing.
func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.bump(event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatch, "watch error", err)

		case <-w.done:
			return
		}
	}
}

// bump resets the debounce timer for the path if it is in the watched set.
func (w *Watcher) bump(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[abs]; !ok {
		return
	}

	if timer, ok := w.timers[abs]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.timers[abs] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, abs)
		w.mu.Unlock()

		select {
		case w.onChange <- abs:
		case <-w.done:
		default:
		}
	})
}
