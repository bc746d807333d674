// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/iwvelando/cashflow-planner/pkg/constants"
)

const (
	// DateLayout is the format used for every calendar date.
	DateLayout = constants.DateLayout

	hoursPerDay = 24
)

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// MustParseDate parses a YYYY-MM-DD date and panics on error.
func MustParseDate(dateStr string) time.Time {
	return MustParseTime(DateLayout, dateStr)
}

// ParseDate parses a YYYY-MM-DD date into a UTC midnight time.Time.
func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse(DateLayout, dateStr)
}

// FormatDate renders t using DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Truncate drops the clock portion of t, keeping its calendar date in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from `from` to `to`.
// The result is negative when `to` is before `from`.
func DaysBetween(from, to time.Time) int {
	return int(Truncate(to).Sub(Truncate(from)).Hours() / hoursPerDay)
}

// AddDays returns the calendar date `days` after t.
func AddDays(t time.Time, days int) time.Time {
	return Truncate(t).AddDate(0, 0, days)
}

// MaxDate returns the later of two dates.
func MaxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// Clock returns the current time. Components take one so tests can pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// Today returns the calendar date of clock's current time, falling back to
// the wall clock when clock is nil.
func Today(clock Clock) time.Time {
	if clock == nil {
		clock = SystemClock
	}
	return Truncate(clock())
}
