// Package debounce provides a keyed write scheduler. Rapid updates to the
// same key collapse into a single deferred execution of the latest payload,
// which keeps high-frequency position reporting from hammering the store.
package debounce

import (
	"log/slog"
	"sync"
	"time"
)

// Scheduler coalesces work per key. Each Schedule call replaces the key's
// pending work and restarts its settle timer; when the timer fires only the
// most recent work runs.
type Scheduler struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pendingWork
	closed  bool
}

type pendingWork struct {
	timer *time.Timer
	fn    func()
	// seq detects a timer that fired for a superseded schedule: the fire
	// callback captures the sequence it was armed with and gives up when a
	// newer Schedule has bumped it.
	seq uint64
}

// NewScheduler creates a Scheduler. A nil logger discards log output.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		logger:  logger,
		pending: make(map[string]*pendingWork),
	}
}

// Schedule queues fn to run after window, replacing any work already
// pending for key. After Close the scheduler no longer defers: fn runs
// synchronously so late writes are not lost during teardown.
func (s *Scheduler) Schedule(key string, window time.Duration, fn func()) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}

	if w, ok := s.pending[key]; ok {
		w.fn = fn
		w.seq++
		seq := w.seq
		w.timer.Stop()
		w.timer = time.AfterFunc(window, func() {
			s.fire(key, seq)
		})
		s.mu.Unlock()
		return
	}

	w := &pendingWork{fn: fn}
	seq := w.seq
	w.timer = time.AfterFunc(window, func() {
		s.fire(key, seq)
	})
	s.pending[key] = w
	s.mu.Unlock()
}

// fire runs the pending work for key if seq still matches, i.e. no newer
// Schedule call replaced it while the timer callback was in flight.
func (s *Scheduler) fire(key string, seq uint64) {
	s.mu.Lock()
	w, ok := s.pending[key]
	if !ok || w.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	fn := w.fn
	s.mu.Unlock()

	fn()
}

// Flush runs the pending work for key immediately, if any. Returns true if
// work ran.
func (s *Scheduler) Flush(key string) bool {
	s.mu.Lock()
	w, ok := s.pending[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.pending, key)
	w.timer.Stop()
	fn := w.fn
	s.mu.Unlock()

	fn()
	return true
}

// Cancel discards the pending work for key without running it. Returns true
// if work was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	w.timer.Stop()
	return true
}

// FlushAll runs all pending work immediately and returns how many items
// ran. Used at shutdown so nothing queued is lost.
func (s *Scheduler) FlushAll() int {
	s.mu.Lock()
	work := make([]func(), 0, len(s.pending))
	for key, w := range s.pending {
		w.timer.Stop()
		work = append(work, w.fn)
		delete(s.pending, key)
	}
	s.mu.Unlock()

	for _, fn := range work {
		fn()
	}
	if len(work) > 0 {
		s.logger.Debug("flushed pending writes", "count", len(work))
	}
	return len(work)
}

// Pending returns the number of keys with queued work.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close flushes all pending work and switches the scheduler to synchronous
// passthrough for any subsequent Schedule call.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.FlushAll()
}
