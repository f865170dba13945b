package domain

// UserStats is the single per-owner statistics record: streak state,
// cumulative reading minutes, and the most recently opened book. Created
// on the first streak-relevant action and never deleted.
type UserStats struct {
	Record

	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`

	// LastReadDay is the most recent local calendar day with reading
	// activity.
	LastReadDay Day `json:"last_read_day,omitempty"`

	// FreezeAvailable is the one-time grace token that preserves a streak
	// across a single missed day. Consumed on use; re-armed only by an
	// explicit reset.
	FreezeAvailable bool `json:"freeze_available"`

	TotalMinutes  int         `json:"total_minutes"`
	MinutesPerDay map[Day]int `json:"minutes_per_day,omitempty"`

	LastOpenedBookID string `json:"last_opened_book_id,omitempty"`
}

// NewUserStats creates stats for an owner with the freeze grace available.
func NewUserStats(ownerID string) *UserStats {
	return &UserStats{
		Record: Record{
			ID:      ownerID,
			OwnerID: ownerID,
		},
		FreezeAvailable: true,
	}
}

// MarkRead records reading activity on the given local calendar day and
// advances the streak state machine:
//
//   - same day as the last read: no-op, already counted
//   - next consecutive day: streak extends
//   - gap of more than one day with the freeze available: the freeze is
//     consumed and the streak still extends
//   - gap of more than one day without the freeze: streak resets to 1
//
// Returns true if the stats changed. Days earlier than the last read day
// are ignored; the streak never moves backwards on clock weirdness.
func (s *UserStats) MarkRead(today Day) bool {
	if today == s.LastReadDay {
		return false
	}

	switch {
	case s.LastReadDay.IsZero():
		s.CurrentStreak = 1
	default:
		gap := s.LastReadDay.DaysUntil(today)
		if gap < 1 {
			return false
		}
		switch {
		case gap == 1:
			s.CurrentStreak++
		case s.FreezeAvailable:
			s.FreezeAvailable = false
			s.CurrentStreak++
		default:
			s.CurrentStreak = 1
		}
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastReadDay = today
	return true
}

// AddMinutes accumulates reading minutes for a day into both the per-day
// total and the lifetime total.
func (s *UserStats) AddMinutes(day Day, minutes int) {
	if minutes <= 0 {
		return
	}
	if s.MinutesPerDay == nil {
		s.MinutesPerDay = make(map[Day]int)
	}
	s.MinutesPerDay[day] += minutes
	s.TotalMinutes += minutes
}

// MinutesOn returns the recorded minutes for a day.
func (s *UserStats) MinutesOn(day Day) int {
	return s.MinutesPerDay[day]
}

// ResetFreeze re-arms the one-time streak freeze.
func (s *UserStats) ResetFreeze() {
	s.FreezeAvailable = true
}
