// Package watcher observes a drop folder and emits an event for each file
// once it has finished being written. Dropped files become uploaded
// documents in the library.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event is a settled file ready for ingestion.
type Event struct {
	Path string
	Size int64
}

// Watcher watches a single drop directory with fsnotify. Files are only
// emitted after they settle: still-growing downloads restart their timer
// on every write, so a half-copied file is never ingested.
type Watcher struct {
	dir    string
	opts   Options
	logger *slog.Logger

	fsw    *fsnotify.Watcher
	events chan Event

	mu      sync.Mutex
	pending map[string]*pendingFile

	closeOnce sync.Once
	done      chan struct{}
}

type pendingFile struct {
	timer   *time.Timer
	size    int64
	modTime time.Time
}

// New creates a Watcher for dir. The directory is created if absent.
func New(dir string, opts Options, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts.setDefaults()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create drop directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		opts:    opts,
		logger:  logger,
		fsw:     fsw,
		events:  make(chan Event, 16),
		pending: make(map[string]*pendingFile),
		done:    make(chan struct{}),
	}, nil
}

// Events returns the channel of settled files. Closed when the watcher
// stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start processes filesystem events until ctx is cancelled or Close is
// called. Blocks; run it in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("watching drop folder", "dir", w.dir)
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.track(event.Name)
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				w.forget(event.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops the watcher and cancels all pending settle timers.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()

		w.mu.Lock()
		for path, p := range w.pending {
			p.timer.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
	return err
}

// track starts or restarts the settle timer for a path.
func (w *Watcher) track(path string) {
	if w.opts.shouldIgnore(path) {
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer.Stop()
		p.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.checkSettled(path)
		})
		return
	}

	p := &pendingFile{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	p.timer = time.AfterFunc(w.opts.SettleDelay, func() {
		w.checkSettled(path)
	})
	w.pending[path] = p
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// checkSettled re-stats the file when its timer fires. If it grew since
// the last observation the timer restarts; otherwise the file is settled
// and emitted.
func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if !ok {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		// Vanished before settling
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}

	if info.Size() != p.size || info.ModTime() != p.modTime {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.opts.SettleDelay, func() {
			w.checkSettled(path)
		})
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case w.events <- Event{Path: path, Size: info.Size()}:
		w.logger.Debug("file settled", "path", path, "size", info.Size())
	case <-w.done:
	}
}
