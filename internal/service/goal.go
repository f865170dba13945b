package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
	apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"
	"github.com/pageturnapp/pageturn-engine/internal/store"
)

// GoalService manages reading plans and derives goal progress from the
// position facts in the store.
type GoalService struct {
	store  *store.Store
	logger *slog.Logger

	onWrite func()
}

// NewGoalService creates a new goal service.
func NewGoalService(st *store.Store, onWrite func(), logger *slog.Logger) *GoalService {
	if onWrite == nil {
		onWrite = func() {}
	}
	return &GoalService{
		store:   st,
		logger:  logger,
		onWrite: onWrite,
	}
}

// SetGoalRequest contains the data for setting a reading goal.
type SetGoalRequest struct {
	BookID     string `json:"book_id" validate:"required"`
	TargetDate string `json:"target_date" validate:"required"`

	// TargetUnit and TargetPercent are optional partial targets; zero
	// means "finish the book".
	TargetUnit    int     `json:"target_unit" validate:"gte=0"`
	TargetPercent float64 `json:"target_percent" validate:"gte=0,lte=100"`
}

// SetGoal creates or replaces the plan for (owner, book). A malformed or
// past target date is rejected before anything is written; today is a
// valid target. The book's current position is captured as the plan's
// start position.
func (s *GoalService) SetGoal(ctx context.Context, ownerID string, req SetGoalRequest) (*domain.ReadingPlan, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	target := domain.Day(req.TargetDate)
	if !target.Valid() {
		return nil, apperrors.InvalidGoalDatef("target date %q is not a valid YYYY-MM-DD day", req.TargetDate)
	}
	if target.Before(domain.Today()) {
		return nil, apperrors.InvalidGoalDatef("target date %s is in the past", target)
	}

	book, err := s.store.Books.Get(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	if book.IsDeleted() {
		return nil, apperrors.NotFoundf("book %s has been removed", req.BookID)
	}

	planID := domain.PlanID(ownerID, req.BookID)
	apply := func(p *domain.ReadingPlan) {
		p.OwnerID = ownerID
		p.BookID = req.BookID
		p.TargetDate = target
		p.TargetUnit = req.TargetUnit
		p.TargetPercent = req.TargetPercent
		p.StartUnit = book.CurrentUnit
		p.StartPercent = book.Percent
		p.StartWords = book.Words
		p.Deleted = false
	}

	plan, created, err := s.store.Plans.Ensure(ctx, planID, func() *domain.ReadingPlan {
		p := &domain.ReadingPlan{CreatedAt: time.Now().UnixMilli()}
		apply(p)
		return p
	})
	if err != nil {
		return nil, err
	}
	if !created {
		// Replace semantics: setting a goal on a book that already has one
		// (even a cleared one) overwrites it.
		plan, err = s.store.Plans.Patch(ctx, planID, func(p *domain.ReadingPlan) error {
			apply(p)
			if p.CreatedAt == 0 {
				p.CreatedAt = time.Now().UnixMilli()
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("goal set",
		"book_id", req.BookID,
		"target_date", target)
	s.onWrite()
	return plan, nil
}

// ClearGoal removes the plan for (owner, book). Clearing a book without a
// plan returns not found.
func (s *GoalService) ClearGoal(ctx context.Context, ownerID, bookID string) error {
	if err := s.store.Plans.Tombstone(ctx, domain.PlanID(ownerID, bookID)); err != nil {
		return err
	}

	s.logger.Info("goal cleared", "book_id", bookID)
	s.onWrite()
	return nil
}

// GetPlan returns the active plan for (owner, book), or not found when no
// goal is set.
func (s *GoalService) GetPlan(ctx context.Context, ownerID, bookID string) (*domain.ReadingPlan, error) {
	plan, err := s.store.Plans.Get(ctx, domain.PlanID(ownerID, bookID))
	if err != nil {
		return nil, err
	}
	if !plan.HasGoal() {
		return nil, apperrors.NotFoundf("no reading plan for book %s", bookID)
	}
	return plan, nil
}

// GoalProgress is the derived daily goal state for one book.
type GoalProgress struct {
	BookID        string     `json:"book_id"`
	TargetDate    domain.Day `json:"target_date"`
	DaysRemaining int        `json:"days_remaining"`

	// Metric names which family of fields below carries the numbers.
	Metric string `json:"metric"` // "units" or "percent"

	DailyTargetUnits int `json:"daily_target_units,omitempty"`
	AchievedUnits    int `json:"achieved_units,omitempty"`

	DailyTargetPercent float64 `json:"daily_target_percent,omitempty"`
	AchievedPercent    float64 `json:"achieved_percent,omitempty"`

	// PercentOfDaily is how much of today's target is met, 0-100.
	PercentOfDaily int `json:"percent_of_daily"`
}

// Progress derives today's goal state for (owner, book). The daily
// baseline is created lazily from the current position if today has no
// observation yet, which makes achieved-today start at zero after a day
// rollover.
func (s *GoalService) Progress(ctx context.Context, ownerID, bookID string, today domain.Day) (*GoalProgress, error) {
	plan, err := s.GetPlan(ctx, ownerID, bookID)
	if err != nil {
		return nil, err
	}

	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	baseline, _, err := s.store.EnsureDailyBaseline(ctx, ownerID, bookID, today, domain.PositionUpdate{
		Unit:    book.CurrentUnit,
		Percent: book.Percent,
		Words:   book.Words,
	})
	if err != nil {
		return nil, err
	}

	days, ok := domain.DaysRemaining(plan.TargetDate, today)
	if !ok {
		return nil, apperrors.InvalidGoalDatef("plan for book %s has an unusable target date", bookID)
	}

	progress := &GoalProgress{
		BookID:        bookID,
		TargetDate:    plan.TargetDate,
		DaysRemaining: days,
	}

	if book.Kind == domain.BookKindPaginated {
		totalTarget := plan.TargetPercent
		if totalTarget == 0 {
			totalTarget = 100
		}
		dailyTarget, _ := domain.DailyTarget(totalTarget, baseline.Percent, days)
		achieved := domain.AchievedToday(book.Percent, baseline.Percent)
		pct, _ := domain.GoalPercent(achieved, dailyTarget)

		progress.Metric = "percent"
		progress.DailyTargetPercent = dailyTarget
		progress.AchievedPercent = achieved
		progress.PercentOfDaily = pct
		return progress, nil
	}

	totalTarget := plan.TargetUnit
	if totalTarget == 0 {
		totalTarget = book.TotalUnits
	}
	dailyTarget, _ := domain.DailyTarget(totalTarget, baseline.Unit, days)
	achieved := domain.AchievedToday(book.CurrentUnit, baseline.Unit)
	pct, _ := domain.GoalPercent(achieved, dailyTarget)

	progress.Metric = "units"
	progress.DailyTargetUnits = dailyTarget
	progress.AchievedUnits = achieved
	progress.PercentOfDaily = pct
	return progress, nil
}
