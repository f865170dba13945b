package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/pageturnapp/pageturn-engine/internal/cache"
	"github.com/pageturnapp/pageturn-engine/internal/debounce"
	"github.com/pageturnapp/pageturn-engine/internal/domain"
	apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"
	"github.com/pageturnapp/pageturn-engine/internal/shell"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// ProgressService applies position updates under the progress version
// guard. Updates are acknowledged synchronously into the resume-hint cache
// and debounced into the store, so a page-turn burst costs one durable
// write.
type ProgressService struct {
	store     *store.Store
	scheduler *debounce.Scheduler
	hints     *cache.Hints
	shell     shell.Publisher
	stats     *StatsService
	logger    *slog.Logger

	// window is the settle delay between the last reported position and
	// its durable write.
	window time.Duration

	onWrite func()
}

// NewProgressService creates a new progress service.
func NewProgressService(
	st *store.Store,
	scheduler *debounce.Scheduler,
	hints *cache.Hints,
	publisher shell.Publisher,
	stats *StatsService,
	window time.Duration,
	onWrite func(),
	logger *slog.Logger,
) *ProgressService {
	if onWrite == nil {
		onWrite = func() {}
	}
	if window == 0 {
		window = time.Second
	}
	return &ProgressService{
		store:     st,
		scheduler: scheduler,
		hints:     hints,
		shell:     publisher,
		stats:     stats,
		logger:    logger,
		window:    window,
		onWrite:   onWrite,
	}
}

// ReportPosition records one observed reading position. The resume hint
// updates immediately; the durable write is debounced per book, latest
// update wins. A report older than the cached hint is dropped here; the
// version guard runs again at persist time inside the store transaction,
// so a stale burst can never clobber a newer position no matter how the
// timers interleave.
func (s *ProgressService) ReportPosition(ctx context.Context, ownerID, bookID string, update domain.PositionUpdate) {
	if hint, ok := s.hints.Load(bookID); ok && update.Version < hint.Version {
		s.logger.Info("dropped stale position update",
			"book_id", bookID,
			"version", update.Version)
		return
	}

	s.hints.Store(bookID, cache.Hint{
		Version: update.Version,
		Unit:    update.Unit,
		Percent: update.Percent,
		Words:   update.Words,
		Marker:  update.Marker,
	})

	// The write may fire after the caller's request scope ends.
	persistCtx := context.WithoutCancel(ctx)
	s.scheduler.Schedule("pos:"+bookID, s.window, func() {
		s.persistPosition(persistCtx, ownerID, bookID, update)
	})
}

// FlushPosition forces any pending debounced write for a book to disk now.
// The UI calls this when a book closes.
func (s *ProgressService) FlushPosition(bookID string) {
	s.scheduler.Flush("pos:" + bookID)
}

// ResumeHint returns the freshest known position for a book: the in-memory
// hint when present, otherwise the stored record.
func (s *ProgressService) ResumeHint(ctx context.Context, bookID string) (cache.Hint, error) {
	if hint, ok := s.hints.Load(bookID); ok {
		return hint, nil
	}

	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return cache.Hint{}, err
	}
	return cache.Hint{
		Version: book.ProgressVersion,
		Unit:    book.CurrentUnit,
		Percent: book.Percent,
		Words:   book.Words,
		Marker:  book.PositionMarker,
	}, nil
}

// persistPosition applies the update to the stored record. The guard and
// the write happen in one store transaction; a stale version aborts the
// transaction, gets logged, and is otherwise dropped.
func (s *ProgressService) persistPosition(ctx context.Context, ownerID, bookID string, update domain.PositionUpdate) {
	book, err := s.store.Books.Patch(ctx, bookID, func(b *domain.Book) error {
		if b.IsDeleted() {
			return apperrors.NotFoundf("book %s has been removed", bookID)
		}
		if outcome := b.ApplyPosition(update); outcome == domain.PositionStale {
			return apperrors.StaleWritef(
				"update version %d below applied version %d", update.Version, b.ProgressVersion)
		}
		return nil
	})

	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrStaleWrite):
		s.logger.Info("dropped stale position update",
			"book_id", bookID,
			"version", update.Version)
		s.reconcileHint(ctx, bookID)
		return
	default:
		s.logger.Error("failed to persist position",
			"book_id", bookID,
			"error", err)
		return
	}

	today := domain.Today()
	if _, _, err := s.store.EnsureDailyBaseline(ctx, ownerID, bookID, today, update); err != nil {
		s.logger.Warn("failed to ensure daily baseline",
			"book_id", bookID,
			"error", err)
	}

	if s.stats != nil {
		if err := s.stats.NoteReadingActivity(ctx, ownerID, bookID, today); err != nil {
			s.logger.Warn("failed to record reading activity",
				"book_id", bookID,
				"error", err)
		}
	}

	s.publishSnapshot(ctx, ownerID, book)
	s.onWrite()
}

// reconcileHint re-anchors the cached hint on the durable record after a
// stale write was dropped. The store is authoritative on conflict; without
// this a rejected report could keep serving its regressed position from
// the cache until restart.
func (s *ProgressService) reconcileHint(ctx context.Context, bookID string) {
	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return
	}
	if hint, ok := s.hints.Load(bookID); ok && hint.Version >= book.ProgressVersion {
		return
	}
	s.hints.Store(bookID, cache.Hint{
		Version: book.ProgressVersion,
		Unit:    book.CurrentUnit,
		Percent: book.Percent,
		Words:   book.Words,
		Marker:  book.PositionMarker,
	})
}

// publishSnapshot pushes (percent, has_goal) to the native shell.
// Best-effort; the publisher swallows bus failures.
func (s *ProgressService) publishSnapshot(ctx context.Context, ownerID string, book *domain.Book) {
	hasGoal := false
	plan, err := s.store.Plans.Get(ctx, domain.PlanID(ownerID, book.ID))
	if err == nil {
		hasGoal = plan.HasGoal()
	}

	s.shell.Publish(shell.Snapshot{
		BookID:  book.ID,
		Percent: overallPercent(book),
		HasGoal: hasGoal,
	})
}

// overallPercent computes the whole-book position as 0-100 for the shell.
func overallPercent(book *domain.Book) int {
	var pct float64
	switch {
	case book.Percent > 0:
		pct = book.Percent
	case book.TotalUnits > 0:
		pct = float64(book.CurrentUnit) / float64(book.TotalUnits) * 100
	}
	return min(100, max(0, int(math.Round(pct))))
}

// Close flushes every pending debounced write. Called on daemon shutdown
// before the store closes.
func (s *ProgressService) Close() {
	s.scheduler.FlushAll()
}
