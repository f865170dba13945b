package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pageturnapp/pageturn-engine/internal/debounce"
	"github.com/pageturnapp/pageturn-engine/internal/domain"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// StatsService maintains per-owner streaks and reading-time statistics.
//
// Minute accumulation is debounced: increments land in an in-memory
// accumulator and drain to the store after the stats window, so a ticking
// reading timer does not write every tick.
type StatsService struct {
	store     *store.Store
	scheduler *debounce.Scheduler
	logger    *slog.Logger
	window    time.Duration

	mu             sync.Mutex
	pendingMinutes map[string]map[domain.Day]int // ownerID -> day -> minutes

	onWrite func()
}

// NewStatsService creates a new stats service.
func NewStatsService(st *store.Store, scheduler *debounce.Scheduler, window time.Duration, onWrite func(), logger *slog.Logger) *StatsService {
	if onWrite == nil {
		onWrite = func() {}
	}
	if window == 0 {
		window = 2 * time.Second
	}
	return &StatsService{
		store:          st,
		scheduler:      scheduler,
		logger:         logger,
		window:         window,
		pendingMinutes: make(map[string]map[domain.Day]int),
		onWrite:        onWrite,
	}
}

// GetStats returns the owner's stats record, creating it if absent.
func (s *StatsService) GetStats(ctx context.Context, ownerID string) (*domain.UserStats, error) {
	return s.store.EnsureUserStats(ctx, ownerID)
}

// MarkRead records reading activity on a local calendar day and advances
// the streak. Idempotent within a day.
func (s *StatsService) MarkRead(ctx context.Context, ownerID string, day domain.Day) (*domain.UserStats, error) {
	if _, err := s.store.EnsureUserStats(ctx, ownerID); err != nil {
		return nil, err
	}

	var changed bool
	stats, err := s.store.Stats.Patch(ctx, ownerID, func(u *domain.UserStats) error {
		changed = u.MarkRead(day)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("streak updated",
			"owner_id", ownerID,
			"current_streak", stats.CurrentStreak,
			"freeze_available", stats.FreezeAvailable)
		s.onWrite()
	}
	return stats, nil
}

// NoteReadingActivity marks the day read and remembers the book as the
// most recently opened, in one record write. Called from the position
// persist path.
func (s *StatsService) NoteReadingActivity(ctx context.Context, ownerID, bookID string, day domain.Day) error {
	if _, err := s.store.EnsureUserStats(ctx, ownerID); err != nil {
		return err
	}

	_, err := s.store.Stats.Patch(ctx, ownerID, func(u *domain.UserStats) error {
		u.MarkRead(day)
		u.LastOpenedBookID = bookID
		return nil
	})
	if err != nil {
		return err
	}

	s.onWrite()
	return nil
}

// AddMinutes accumulates reading minutes for today. The store write is
// debounced per owner; increments inside the window fold together.
func (s *StatsService) AddMinutes(ctx context.Context, ownerID string, day domain.Day, minutes int) {
	if minutes <= 0 {
		return
	}

	s.mu.Lock()
	if s.pendingMinutes[ownerID] == nil {
		s.pendingMinutes[ownerID] = make(map[domain.Day]int)
	}
	s.pendingMinutes[ownerID][day] += minutes
	s.mu.Unlock()

	persistCtx := context.WithoutCancel(ctx)
	s.scheduler.Schedule("stats:"+ownerID, s.window, func() {
		s.flushMinutes(persistCtx, ownerID)
	})
}

// flushMinutes drains the owner's accumulated minutes into the store.
func (s *StatsService) flushMinutes(ctx context.Context, ownerID string) {
	s.mu.Lock()
	pending := s.pendingMinutes[ownerID]
	delete(s.pendingMinutes, ownerID)
	s.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	if _, err := s.store.EnsureUserStats(ctx, ownerID); err != nil {
		s.logger.Error("failed to ensure stats record", "owner_id", ownerID, "error", err)
		return
	}

	_, err := s.store.Stats.Patch(ctx, ownerID, func(u *domain.UserStats) error {
		for day, minutes := range pending {
			u.AddMinutes(day, minutes)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to persist reading minutes", "owner_id", ownerID, "error", err)
		return
	}

	s.onWrite()
}

// ResetFreeze re-arms the owner's one-time streak freeze. There is no
// automatic re-grant; this is the only path.
func (s *StatsService) ResetFreeze(ctx context.Context, ownerID string) (*domain.UserStats, error) {
	if _, err := s.store.EnsureUserStats(ctx, ownerID); err != nil {
		return nil, err
	}

	stats, err := s.store.Stats.Patch(ctx, ownerID, func(u *domain.UserStats) error {
		u.ResetFreeze()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("streak freeze re-armed", "owner_id", ownerID)
	s.onWrite()
	return stats, nil
}
