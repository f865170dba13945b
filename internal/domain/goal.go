package domain

import "math"

// Goal math. Pure functions, no I/O, never suspend.
//
// Position is tracked in word-count units for structured text and percent
// units (0-100) for paginated documents. The Quantity constraint keeps the
// two families separate at the call site: int instantiations carry
// word/page units, float64 instantiations carry percentages. The formulas
// are identical and must stay that way.

// Quantity is a position measure: whole units (words, pages) or a percent.
type Quantity interface {
	~int | ~float64
}

// DaysRemaining returns how many calendar days remain to reach the target
// date, counting the target day itself: max(1, diff+1). An unset or
// malformed target means no goal, reported by ok=false. A target already
// in the past clamps to 1 so the whole remainder is due today.
func DaysRemaining(target, today Day) (int, bool) {
	if target.IsZero() || !target.Valid() || !today.Valid() {
		return 0, false
	}
	diff := today.DaysUntil(target)
	return max(1, diff+1), true
}

// DailyTarget returns today's required progress toward totalTarget,
// measured from the daily baseline: ceil(max(0, total-baseline)/days).
// ok=false when daysRemaining is absent (non-positive).
func DailyTarget[Q Quantity](totalTarget, baseline Q, daysRemaining int) (Q, bool) {
	if daysRemaining <= 0 {
		return 0, false
	}
	remaining := max(0, totalTarget-baseline)
	return Q(math.Ceil(float64(remaining) / float64(daysRemaining))), true
}

// AchievedToday returns progress made since the daily baseline, never
// negative even if a stale read momentarily puts the baseline ahead of the
// current position.
func AchievedToday[Q Quantity](current, baseline Q) Q {
	return max(0, current-baseline)
}

// GoalPercent returns the percent of the daily target met, rounded and
// clamped to 0-100. ok=false when the target is absent or zero.
func GoalPercent[Q Quantity](achieved, target Q) (int, bool) {
	if target <= 0 {
		return 0, false
	}
	pct := int(math.Round(float64(achieved) / float64(target) * 100))
	return min(100, max(0, pct)), true
}
