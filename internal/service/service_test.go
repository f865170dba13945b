package service

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pageturnapp/pageturn-engine/internal/blob"
	"github.com/pageturnapp/pageturn-engine/internal/cache"
	"github.com/pageturnapp/pageturn-engine/internal/debounce"
	"github.com/pageturnapp/pageturn-engine/internal/shell"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// recordingPublisher captures shell snapshots for assertions.
type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []shell.Snapshot
}

func (p *recordingPublisher) Publish(snapshot shell.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snapshot)
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) last() (shell.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return shell.Snapshot{}, false
	}
	return p.snapshots[len(p.snapshots)-1], true
}

// fixture wires the full service stack over a temp store. Debounce windows
// are an hour so nothing fires on its own; tests flush explicitly.
type fixture struct {
	store     *store.Store
	scheduler *debounce.Scheduler
	hints     *cache.Hints
	publisher *recordingPublisher

	library  *LibraryService
	progress *ProgressService
	goals    *GoalService
	stats    *StatsService
	identity *IdentityService

	triggers int
	mu       sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := store.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blob.NewStorage(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		store:     st,
		scheduler: debounce.NewScheduler(nil),
		hints:     cache.NewHints(),
		publisher: &recordingPublisher{},
	}
	t.Cleanup(f.scheduler.Close)

	onWrite := func() {
		f.mu.Lock()
		f.triggers++
		f.mu.Unlock()
	}

	f.library = NewLibraryService(st, blobs, f.hints, onWrite, discardLogger())
	f.stats = NewStatsService(st, f.scheduler, time.Hour, onWrite, discardLogger())
	f.progress = NewProgressService(st, f.scheduler, f.hints, f.publisher, f.stats,
		time.Hour, onWrite, discardLogger())
	f.goals = NewGoalService(st, onWrite, discardLogger())
	f.identity = NewIdentityService(st, discardLogger())

	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func (f *fixture) triggerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers
}
