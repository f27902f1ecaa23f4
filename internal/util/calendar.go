package util

import "time"

// IsWeekday reports whether t falls on a weekday in UTC. It is a cheap
// offline check; exchange holidays need the trading calendar API.
func IsWeekday(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// PreviousWeekday returns the latest weekday strictly before t (UTC).
func PreviousWeekday(t time.Time) time.Time {
	d := t.UTC().AddDate(0, 0, -1)
	for !IsWeekday(d) {
		d = d.AddDate(0, 0, -1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
