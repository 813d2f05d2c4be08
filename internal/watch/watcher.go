// Package watch reloads the profile store when another process commits to
// the shared database.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = time.Second

// Revisioner reports a counter that changes whenever another connection
// commits. Implemented by storage.Store.
type Revisioner interface {
	Revision() (int64, error)
}

// Reloader re-reads persisted state. Implemented by profile.Store.
type Reloader interface {
	Reload() (bool, error)
}

// Watcher compares the database revision on every filesystem event in the
// data directory and on a fixed poll interval, and reloads the target when
// the revision moves.
type Watcher struct {
	rev    Revisioner
	target Reloader
	dir    string
	prefix string
	poll   time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	primed bool
	last   int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDir enables filesystem notifications for files in dir whose name
// starts with prefix (the database file and its -wal/-shm siblings).
func WithDir(dir, prefix string) Option {
	return func(w *Watcher) {
		w.dir = dir
		w.prefix = prefix
	}
}

// WithPollInterval sets the fallback poll interval. Values <= 0 select
// DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.poll = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher.
func New(rev Revisioner, target Reloader, opts ...Option) *Watcher {
	w := &Watcher{
		rev:    rev,
		target: target,
		poll:   DefaultPollInterval,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// CheckOnce reloads the target if the revision changed since the previous
// call. The first call only records the current revision.
func (w *Watcher) CheckOnce() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rev, err := w.rev.Revision()
	if err != nil {
		return false, fmt.Errorf("reading revision: %w", err)
	}
	if !w.primed {
		w.primed = true
		w.last = rev
		return false, nil
	}
	if rev == w.last {
		return false, nil
	}
	w.last = rev

	changed, err := w.target.Reload()
	if err != nil {
		return false, fmt.Errorf("reloading: %w", err)
	}
	if changed {
		w.logger.Info("reloaded state written by another process", zap.Int64("revision", rev))
	}
	return changed, nil
}

// Run watches until ctx is cancelled. If filesystem notifications cannot be
// set up, Run falls back to polling only.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.CheckOnce(); err != nil {
		w.logger.Error("initial revision check failed", zap.Error(err))
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.dir != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("file notifications unavailable, polling only", zap.Error(err))
		} else {
			defer fw.Close()
			if err := fw.Add(w.dir); err != nil {
				w.logger.Warn("watching data dir failed, polling only", zap.String("dir", w.dir), zap.Error(err))
			} else {
				events, errs = fw.Events, fw.Errors
			}
		}
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !w.relevant(ev) {
				continue
			}
			w.check()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	if _, err := w.CheckOnce(); err != nil {
		w.logger.Error("revision check failed", zap.Error(err))
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	return w.prefix == "" || strings.HasPrefix(filepath.Base(ev.Name), w.prefix)
}
