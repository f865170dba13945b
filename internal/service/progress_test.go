package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
)

func addTestBook(t *testing.T, f *fixture, totalUnits int) *domain.Book {
	t.Helper()

	book, err := f.library.AddBook(context.Background(), domain.OwnerAnonymous, AddBookRequest{
		Kind:       domain.BookKindPhysical,
		Title:      "Test Book",
		TotalUnits: totalUnits,
	})
	require.NoError(t, err)
	return book
}

func TestProgress_RapidUpdatesPersistOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	// A page-turn burst: ten updates inside the debounce window.
	for i := 1; i <= 10; i++ {
		f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
			Version: int64(i),
			Unit:    100 + i,
		})
	}

	// Nothing durable yet; the hint already serves the latest position.
	stored, err := f.store.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.CurrentUnit)

	hint, ok := f.hints.Load(book.ID)
	require.True(t, ok)
	assert.Equal(t, 110, hint.Unit)

	f.progress.FlushPosition(book.ID)

	stored, err = f.store.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 110, stored.CurrentUnit, "only the last update of the burst persists")
	assert.Equal(t, int64(10), stored.ProgressVersion)
}

func TestProgress_StaleVersionDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 5, Unit: 150, Marker: "ch7",
	})
	f.progress.FlushPosition(book.ID)

	// A lagging replica reports an older version.
	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 3, Unit: 80, Marker: "ch4",
	})
	f.progress.FlushPosition(book.ID)

	stored, err := f.store.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, stored.CurrentUnit, "stale update must not regress the position")
	assert.Equal(t, "ch7", stored.PositionMarker)
	assert.Equal(t, int64(5), stored.ProgressVersion)
}

func TestProgress_EqualVersionApplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 2, Unit: 40,
	})
	f.progress.FlushPosition(book.ID)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 2, Unit: 45,
	})
	f.progress.FlushPosition(book.ID)

	stored, err := f.store.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, stored.CurrentUnit)
}

func TestProgress_StaleReportDoesNotRegressHint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 5, Unit: 150, Marker: "ch7",
	})

	// A lagging replica reports an older version while the newer write is
	// still pending. It must neither move the hint nor replace the
	// scheduled write.
	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 3, Unit: 80, Marker: "ch4",
	})

	hint, err := f.progress.ResumeHint(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), hint.Version)
	assert.Equal(t, 150, hint.Unit)

	f.progress.FlushPosition(book.ID)

	stored, err := f.store.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, stored.CurrentUnit)
	assert.Equal(t, int64(5), stored.ProgressVersion)
}

func TestProgress_StaleHintReconciledFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 5, Unit: 150, Marker: "ch7",
	})
	f.progress.FlushPosition(book.ID)

	// After a restart the cache is empty, so a stale report lands in it
	// unchallenged. Once the store rejects the write, the hint must snap
	// back to the durable position instead of serving the regression.
	f.hints.Clear()
	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 3, Unit: 80, Marker: "ch4",
	})
	f.progress.FlushPosition(book.ID)

	hint, err := f.progress.ResumeHint(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), hint.Version, "store wins on conflict")
	assert.Equal(t, 150, hint.Unit)
	assert.Equal(t, "ch7", hint.Marker)
}

func TestProgress_PersistCreatesBaselineAndStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 1, Unit: 25,
	})
	f.progress.FlushPosition(book.ID)

	today := domain.Today()
	baseline, err := f.store.Baselines.Get(ctx,
		domain.BaselineID(domain.OwnerAnonymous, book.ID, today))
	require.NoError(t, err)
	assert.Equal(t, 25, baseline.Unit, "first observation of the day anchors the baseline")

	stats, err := f.stats.GetStats(ctx, domain.OwnerAnonymous)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, today, stats.LastReadDay)
	assert.Equal(t, book.ID, stats.LastOpenedBookID)
}

func TestProgress_PublishesShellSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 200)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 1, Unit: 50,
	})
	f.progress.FlushPosition(book.ID)

	snapshot, ok := f.publisher.last()
	require.True(t, ok)
	assert.Equal(t, book.ID, snapshot.BookID)
	assert.Equal(t, 25, snapshot.Percent) // 50 of 200 units
	assert.False(t, snapshot.HasGoal)

	// With a goal set, the next snapshot reflects it.
	_, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(domain.Today().AddDays(7)),
	})
	require.NoError(t, err)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 2, Unit: 60,
	})
	f.progress.FlushPosition(book.ID)

	snapshot, ok = f.publisher.last()
	require.True(t, ok)
	assert.True(t, snapshot.HasGoal)
	assert.Equal(t, 30, snapshot.Percent)
}

func TestProgress_ResumeHintFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 4, Unit: 120, Marker: "ch6",
	})
	f.progress.FlushPosition(book.ID)

	// Simulate a restart: the in-memory cache is gone.
	f.hints.Clear()

	hint, err := f.progress.ResumeHint(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 120, hint.Unit)
	assert.Equal(t, "ch6", hint.Marker)
	assert.Equal(t, int64(4), hint.Version)
}

func TestProgress_CloseFlushesPendingWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 1, Unit: 75,
	})

	// Teardown without an explicit flush must still persist the position.
	f.progress.Close()

	stored, err := f.store.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 75, stored.CurrentUnit)
}

func TestProgress_RemovedBookWriteDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 1, Unit: 10,
	})
	require.NoError(t, f.library.RemoveBook(ctx, book.ID))

	// The pending write fires after removal and must not resurrect data.
	f.progress.FlushPosition(book.ID)

	stored, err := f.store.Books.Get(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	assert.Zero(t, stored.CurrentUnit)
}
