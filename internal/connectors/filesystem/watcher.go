package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/romdo/go-debounce"

	"github.com/custodia-labs/tally/internal/core/ports/driven"
	"github.com/custodia-labs/tally/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.SeedableWatcher = (*Watcher)(nil)

// Watcher reports files in a directory once they stop changing. Every
// create or write event restarts the file's quiet period; the file is
// reported when a full quiet period passes with no further events.
type Watcher struct {
	dir     string
	quiet   time.Duration
	maxWait time.Duration

	mu      sync.Mutex
	pending map[string]*settling
	seeds   []string
	closed  bool
}

// settling tracks one file between its first event and its report.
type settling struct {
	trigger func()
	cancel  func()
	last    time.Time
}

// NewWatcher creates a watcher for dir. maxWait bounds how long a busy
// file goes without a stability check; the check itself still requires
// a full quiet period since the last event.
func NewWatcher(dir string, quiet, maxWait time.Duration) *Watcher {
	if maxWait < quiet {
		maxWait = quiet
	}
	return &Watcher{
		dir:     filepath.Clean(dir),
		quiet:   quiet,
		maxWait: maxWait,
	}
}

// Seed queues files that were already in the directory. Watch starts
// their quiet period once it is listening for events.
func (w *Watcher) Seed(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seeds = append(w.seeds, paths...)
}

// Watch blocks until ctx is done.
func (w *Watcher) Watch(ctx context.Context, notify func(sourceID string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.pending = make(map[string]*settling)
	w.closed = false
	seeds := w.seeds
	w.seeds = nil
	w.mu.Unlock()
	defer w.stop()

	for _, path := range seeds {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			w.touch(path, notify)
		}
	}
	if len(seeds) > 0 {
		logger.Debug("settling %d file(s) found at start", len(seeds))
	}

	logger.Debug("watching %s (quiet period %s)", w.dir, w.quiet)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(event, notify)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch %s: %v", w.dir, err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, notify func(string)) {
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		w.touch(event.Name, notify)
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.forget(event.Name)
	}
}

func (w *Watcher) touch(path string, notify func(string)) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	s, ok := w.pending[path]
	if !ok {
		s = &settling{}
		s.trigger, s.cancel = debounce.NewWithMaxWait(w.quiet, w.maxWait, func() {
			w.settle(path, notify)
		})
		w.pending[path] = s
	}
	s.last = time.Now()
	w.mu.Unlock()

	s.trigger()
}

// settle runs when the debouncer fires.
func (w *Watcher) settle(path string, notify func(string)) {
	w.mu.Lock()
	s, ok := w.pending[path]
	if !ok || w.closed {
		w.mu.Unlock()
		return
	}
	if time.Since(s.last) < w.quiet {
		// Fired by maxWait while the file is still being written; check
		// again one quiet period from now.
		trigger := s.trigger
		w.mu.Unlock()
		go trigger()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return
	}
	logger.Debug("%s settled", path)
	notify(path)
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	s, ok := w.pending[path]
	delete(w.pending, path)
	w.mu.Unlock()
	if ok {
		s.cancel()
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	w.closed = true
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	for _, s := range pending {
		s.cancel()
	}
}
