package workflow

import "time"

// Clock supplies the current time so date rules (advance notice,
// cancel-before-start, comp-off eligibility) are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock pins Now for tests.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// BusinessDate normalizes a timestamp to a UTC calendar date. All date
// comparisons in the rule set go through this so that "today" means the
// same thing regardless of the server's locale.
func BusinessDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
