// Package watch reloads a snapshot file when it changes on disk.
//
// The watcher observes the file's directory rather than the file itself, so
// editors and producers that replace the file by rename keep being tracked.
// Bursts of events are coalesced over a debounce window, and a reload that
// yields the same content hash is not reported.
package watch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/codeflow/pkg/graph"
)

// DefaultDebounce is the quiet period before a reload.
const DefaultDebounce = 150 * time.Millisecond

// Handler receives each distinct snapshot read from the file.
type Handler func(graph.Snapshot)

// ErrorHandler receives reload failures, such as a half-written file. The
// watcher keeps running.
type ErrorHandler func(error)

// Option configures a [Watcher].
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler sets the reload failure callback.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher reloads one snapshot file.
type Watcher struct {
	path     string
	handler  Handler
	onError  ErrorHandler
	debounce time.Duration
	logger   *log.Logger

	mu       sync.Mutex
	lastHash string
}

// New creates a watcher for path. The current content, if readable, becomes
// the baseline: only later changes are reported.
func New(path string, handler Handler, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	w := &Watcher{
		path:     abs,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}
	if s, err := graph.ReadSnapshotFile(abs); err == nil {
		w.lastHash = s.Hash()
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error if the watch could not be established or the event stream failed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching snapshot", "path", w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", w.path, err)
		case <-fire:
			fire = nil
			w.Reload()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// Reload reads the file now and reports it when its hash differs from the
// last reported snapshot. It returns whether the handler was called.
func (w *Watcher) Reload() bool {
	s, err := graph.ReadSnapshotFile(w.path)
	if err != nil {
		w.logger.Debug("reload failed", "path", w.path, "err", err)
		if w.onError != nil {
			w.onError(err)
		}
		return false
	}
	hash := s.Hash()
	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return false
	}
	w.lastHash = hash
	w.mu.Unlock()

	w.logger.Debug("snapshot changed", "path", w.path, "nodes", len(s.Nodes), "edges", len(s.Edges))
	if w.handler != nil {
		w.handler(s)
	}
	return true
}
