package domain

import "time"

// Day is a calendar day in the device's local timezone, formatted
// "2006-01-02". All "today" comparisons use the local calendar day, not the
// UTC day: late at night is still today. The string form sorts
// chronologically and survives JSON round trips unchanged.
type Day string

const dayLayout = "2006-01-02"

// Today returns the current local calendar day.
func Today() Day {
	return DayOf(time.Now())
}

// DayOf returns the local calendar day containing t.
func DayOf(t time.Time) Day {
	return Day(t.In(time.Local).Format(dayLayout))
}

// Valid reports whether d parses as a calendar day.
func (d Day) Valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// IsZero reports whether d is unset.
func (d Day) IsZero() bool {
	return d == ""
}

// Before reports whether d is an earlier calendar day than other.
// The layout sorts lexically, so string comparison is exact.
func (d Day) Before(other Day) bool {
	return d < other
}

// AddDays returns the day n calendar days after d. Invalid days return d
// unchanged.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return Day(t.AddDate(0, 0, n).Format(dayLayout))
}

// DaysUntil returns the number of calendar days from d to other
// (positive when other is later). Both days are interpreted at UTC
// midnight so the difference is a whole number regardless of DST.
func (d Day) DaysUntil(other Day) int {
	from, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return 0
	}
	to, err := time.Parse(dayLayout, string(other))
	if err != nil {
		return 0
	}
	return int(to.Sub(from) / (24 * time.Hour))
}
