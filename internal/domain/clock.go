package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b (both truncated to dates).
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

// today reads the current UTC date from c, falling back to the real clock.
func today(c clockwork.Clock) time.Time {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return dateOf(c.Now())
}
