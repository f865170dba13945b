package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
	apperrors "github.com/pageturnapp/pageturn-engine/internal/errors"
)

func TestGoal_SetAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	target := domain.Today().AddDays(14)
	plan, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(target),
	})
	require.NoError(t, err)
	assert.Equal(t, target, plan.TargetDate)
	assert.Zero(t, plan.StartUnit, "start captured from the current position")
	assert.Positive(t, plan.CreatedAt)

	got, err := f.goals.GetPlan(ctx, domain.OwnerAnonymous, book.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, got.ID)
}

func TestGoal_RejectsBadDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	tests := []struct {
		name string
		date string
	}{
		{"malformed", "next tuesday"},
		{"wrong format", "14/02/2027"},
		{"in the past", string(domain.Today().AddDays(-1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
				BookID:     book.ID,
				TargetDate: tt.date,
			})
			assert.ErrorIs(t, err, apperrors.ErrInvalidGoalDate)
		})
	}

	// Nothing was written.
	_, err := f.goals.GetPlan(ctx, domain.OwnerAnonymous, book.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGoal_TodayIsValidTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	_, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(domain.Today()),
	})
	assert.NoError(t, err)
}

func TestGoal_SetReplacesExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	_, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(domain.Today().AddDays(7)),
		TargetUnit: 100,
	})
	require.NoError(t, err)

	newTarget := domain.Today().AddDays(30)
	plan, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(newTarget),
	})
	require.NoError(t, err)
	assert.Equal(t, newTarget, plan.TargetDate)
	assert.Zero(t, plan.TargetUnit, "replacement overwrites the old partial target")
}

func TestGoal_ClearGoal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	_, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(domain.Today().AddDays(7)),
	})
	require.NoError(t, err)

	require.NoError(t, f.goals.ClearGoal(ctx, domain.OwnerAnonymous, book.ID))

	_, err = f.goals.GetPlan(ctx, domain.OwnerAnonymous, book.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Setting a goal again on the same book revives the cleared plan.
	plan, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(domain.Today().AddDays(3)),
	})
	require.NoError(t, err)
	assert.True(t, plan.HasGoal())
}

func TestGoal_ProgressUnits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)
	today := domain.Today()

	// Reader is at unit 70 with the day's baseline anchored there.
	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 1, Unit: 70,
	})
	f.progress.FlushPosition(book.ID)

	// Target: reach unit 100 by tomorrow — 30 units over 2 days.
	_, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(today.AddDays(1)),
		TargetUnit: 100,
	})
	require.NoError(t, err)

	progress, err := f.goals.Progress(ctx, domain.OwnerAnonymous, book.ID, today)
	require.NoError(t, err)
	assert.Equal(t, "units", progress.Metric)
	assert.Equal(t, 2, progress.DaysRemaining)
	assert.Equal(t, 15, progress.DailyTargetUnits) // ceil(30/2)
	assert.Equal(t, 0, progress.AchievedUnits)
	assert.Equal(t, 0, progress.PercentOfDaily)

	// Reading 10 units today gets the reader to 67% of the daily target.
	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 2, Unit: 80,
	})
	f.progress.FlushPosition(book.ID)

	progress, err = f.goals.Progress(ctx, domain.OwnerAnonymous, book.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 10, progress.AchievedUnits)
	assert.Equal(t, 67, progress.PercentOfDaily)
}

func TestGoal_ProgressDefaultsToWholeBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 200)
	today := domain.Today()

	_, err := f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(today.AddDays(9)),
	})
	require.NoError(t, err)

	progress, err := f.goals.Progress(ctx, domain.OwnerAnonymous, book.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 10, progress.DaysRemaining)
	assert.Equal(t, 20, progress.DailyTargetUnits) // 200 units over 10 days
}

func TestGoal_ProgressPercentMetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := domain.Today()

	book, err := f.library.AddBook(ctx, domain.OwnerAnonymous, AddBookRequest{
		Kind:  domain.BookKindPaginated,
		Title: "Annotated Draft",
	})
	require.NoError(t, err)

	f.progress.ReportPosition(ctx, domain.OwnerAnonymous, book.ID, domain.PositionUpdate{
		Version: 1, Percent: 40,
	})
	f.progress.FlushPosition(book.ID)

	_, err = f.goals.SetGoal(ctx, domain.OwnerAnonymous, SetGoalRequest{
		BookID:     book.ID,
		TargetDate: string(today.AddDays(2)),
	})
	require.NoError(t, err)

	progress, err := f.goals.Progress(ctx, domain.OwnerAnonymous, book.ID, today)
	require.NoError(t, err)
	assert.Equal(t, "percent", progress.Metric)
	assert.Equal(t, 3, progress.DaysRemaining)
	assert.Equal(t, float64(20), progress.DailyTargetPercent) // 60% left over 3 days
}

func TestGoal_ProgressWithoutPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	book := addTestBook(t, f, 300)

	_, err := f.goals.Progress(ctx, domain.OwnerAnonymous, book.ID, domain.Today())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
