package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserStats(t *testing.T) {
	stats := NewUserStats("user-1")

	assert.Equal(t, "user-1", stats.ID)
	assert.Equal(t, "user-1", stats.OwnerID)
	assert.True(t, stats.FreezeAvailable)
	assert.Equal(t, 0, stats.CurrentStreak)
}

func TestMarkRead_FirstEver(t *testing.T) {
	stats := NewUserStats("user-1")

	changed := stats.MarkRead("2025-03-10")
	require.True(t, changed)

	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.LongestStreak)
	assert.Equal(t, Day("2025-03-10"), stats.LastReadDay)
}

func TestMarkRead_SameDayIdempotent(t *testing.T) {
	stats := NewUserStats("user-1")
	stats.MarkRead("2025-03-10")

	changed := stats.MarkRead("2025-03-10")
	assert.False(t, changed)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestMarkRead_ConsecutiveDays(t *testing.T) {
	stats := NewUserStats("user-1")

	stats.MarkRead("2025-03-10")
	stats.MarkRead("2025-03-11")
	stats.MarkRead("2025-03-12")

	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
}

// Gap of three days with the freeze available: streak extends by one (not
// reset), freeze is consumed. A second gap then resets to 1.
func TestMarkRead_FreezeBridgesOneGap(t *testing.T) {
	stats := NewUserStats("user-1")
	stats.MarkRead("2025-03-10")
	stats.MarkRead("2025-03-11")
	require.Equal(t, 2, stats.CurrentStreak)
	require.True(t, stats.FreezeAvailable)

	stats.MarkRead("2025-03-14") // D+3
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.False(t, stats.FreezeAvailable)

	stats.MarkRead("2025-03-17") // another 3-day gap, freeze gone
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
}

func TestMarkRead_ResetWithoutFreeze(t *testing.T) {
	stats := NewUserStats("user-1")
	stats.FreezeAvailable = false

	stats.MarkRead("2025-03-10")
	stats.MarkRead("2025-03-11")
	stats.MarkRead("2025-03-20")

	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
}

func TestMarkRead_EarlierDayIgnored(t *testing.T) {
	stats := NewUserStats("user-1")
	stats.MarkRead("2025-03-10")

	changed := stats.MarkRead("2025-03-08")
	assert.False(t, changed)
	assert.Equal(t, Day("2025-03-10"), stats.LastReadDay)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestResetFreeze(t *testing.T) {
	stats := NewUserStats("user-1")
	stats.MarkRead("2025-03-10")
	stats.MarkRead("2025-03-13") // consumes freeze
	require.False(t, stats.FreezeAvailable)

	stats.ResetFreeze()
	assert.True(t, stats.FreezeAvailable)

	stats.MarkRead("2025-03-16") // bridged again
	assert.Equal(t, 3, stats.CurrentStreak)
}

func TestAddMinutes(t *testing.T) {
	stats := NewUserStats("user-1")

	stats.AddMinutes("2025-03-10", 25)
	stats.AddMinutes("2025-03-10", 10)
	stats.AddMinutes("2025-03-11", 5)
	stats.AddMinutes("2025-03-11", 0)
	stats.AddMinutes("2025-03-11", -3)

	assert.Equal(t, 35, stats.MinutesOn("2025-03-10"))
	assert.Equal(t, 5, stats.MinutesOn("2025-03-11"))
	assert.Equal(t, 40, stats.TotalMinutes)
	assert.Equal(t, 0, stats.MinutesOn("2025-03-12"))
}
