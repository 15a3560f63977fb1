package recurrence

import (
	"fmt"
	"strings"
	"time"
)

type Pattern string

const (
	Daily    Pattern = "daily"
	Weekly   Pattern = "weekly"
	Biweekly Pattern = "biweekly"
	Monthly  Pattern = "monthly"
)

var patterns = map[Pattern]bool{
	Daily:    true,
	Weekly:   true,
	Biweekly: true,
	Monthly:  true,
}

// Parse validates a recurrence pattern string.
func Parse(s string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(s)))
	if !patterns[p] {
		return "", fmt.Errorf("unknown recurrence pattern: %q", s)
	}
	return p, nil
}

// Step advances one period from t. Monthly stepping is calendar-aware: the
// day of month is clamped to the target month's last day, so Jan 31 steps to
// Feb 28 (or Feb 29 in leap years), and Feb 28 steps to Mar 28.
func (p Pattern) Step(t time.Time) time.Time {
	switch p {
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Biweekly:
		return t.AddDate(0, 0, 14)
	case Monthly:
		return addMonthClamped(t)
	}
	return t
}

func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
