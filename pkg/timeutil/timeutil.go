// Package timeutil provides calendar-day helpers for course scheduling.
// Course start dates are calendar days, not instants: a course whose
// start date is "today" is eligible for promotion at any time of day.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// StartOfDay returns the midnight that begins t's day, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day, in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
// b is converted into a's location before comparing.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// IsPastDay reports whether t's calendar day is strictly before now's.
// A start date on the current day is not "in the past".
func IsPastDay(t, now time.Time) bool {
	return StartOfDay(t.In(now.Location())).Before(StartOfDay(now))
}

// Today returns the start of the current day in the given location.
func Today(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return StartOfDay(time.Now().In(loc))
}

// NextDay returns the start of the day after t.
func NextDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// DaysUntil returns the number of whole days from now's day to t's day.
// Negative when t is in the past.
func DaysUntil(t, now time.Time) int {
	from := StartOfDay(now)
	to := StartOfDay(t.In(now.Location()))
	return int(to.Sub(from).Hours() / 24)
}
