// Package watch invalidates cached dictionary state when the files under a
// dictionary directory change on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/samcharles93/geodict/internal/logger"
	"github.com/samcharles93/geodict/pkg/defs"
)

// DefaultDebounce batches the bursts of events a single rewrite produces.
const DefaultDebounce = 200 * time.Millisecond

// Invalidator drops cached state for one dictionary kind.
type Invalidator interface {
	Invalidate(k defs.Kind)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(k defs.Kind)

func (f InvalidatorFunc) Invalidate(k defs.Kind) { f(k) }

// Watcher watches one dictionary directory.
type Watcher struct {
	dir      string
	target   Invalidator
	log      logger.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[defs.Kind]time.Time
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a kind must be quiet before it is invalidated.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// New creates a watcher for dir. Call Start to begin watching.
func New(dir string, target Invalidator, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		dir:      dir,
		target:   target,
		log:      logger.Discard(),
		debounce: DefaultDebounce,
		watcher:  fw,
		pending:  make(map[defs.Kind]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. It returns once the directory is registered; events
// are handled on a background goroutine until Stop or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	w.log.Debug("watching dictionaries", "dir", w.dir)
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the event loop to exit. It flushes
// nothing: invalidations still pending are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := time.NewTicker(max(w.debounce/4, time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("dictionary watcher error", "error", err)
		case now := <-tick.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	k, ok := kindOf(ev.Name)
	if !ok {
		return
	}
	w.mu.Lock()
	w.pending[k] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush(now time.Time) {
	var due []defs.Kind
	w.mu.Lock()
	for k, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			due = append(due, k)
			delete(w.pending, k)
		}
	}
	w.mu.Unlock()
	for _, k := range due {
		w.log.Info("dictionary changed on disk", "kind", k.String())
		w.target.Invalidate(k)
	}
}

// kindOf maps a dictionary file name to its kind. Temporary files written
// during a delete are ignored; the rename that follows is not.
func kindOf(path string) (defs.Kind, bool) {
	base := filepath.Base(path)
	for _, k := range defs.Kinds {
		if base == k.FileName() {
			return k, true
		}
	}
	return 0, false
}
