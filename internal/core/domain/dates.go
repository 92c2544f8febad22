package domain

import "time"

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Yesterday returns midnight of the day before t
func Yesterday(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, -1)
}

// WithinWindow reports whether from <= now < to. A zero to is open-ended.
func WithinWindow(from, to, now time.Time) bool {
	if now.Before(from) {
		return false
	}
	return to.IsZero() || now.Before(to)
}
