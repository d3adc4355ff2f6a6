package analytics

import (
	"errors"
	"strings"
	"time"
)

// TimeRange names the dashboard reporting window.
type TimeRange string

const (
	RangeToday TimeRange = "today"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

// ErrUnknownRange is returned when a range name is not recognised.
var ErrUnknownRange = errors.New("analytics: unknown time range")

// Ranges lists every supported range in display order.
var Ranges = []TimeRange{RangeToday, RangeWeek, RangeMonth, RangeYear}

// ParseTimeRange normalises a user supplied range name. Empty input means today.
func ParseTimeRange(raw string) (TimeRange, error) {
	value := TimeRange(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return RangeToday, nil
	}
	for _, rng := range Ranges {
		if value == rng {
			return rng, nil
		}
	}
	return "", ErrUnknownRange
}

// Window is a time interval. Current windows are half-open [Start, End);
// previous windows include their End.
type Window struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	ClosedEnd bool      `json:"closedEnd"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.ClosedEnd {
		return !t.After(w.End)
	}
	return t.Before(w.End)
}

// Duration is the span between Start and End.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// ResolveRange returns the current and previous windows for rng anchored at now.
// All arithmetic happens in now's location. For today the previous window ends
// at 23:59:59.999 yesterday rather than exactly at midnight.
func ResolveRange(now time.Time, rng TimeRange) (current, previous Window) {
	loc := now.Location()
	switch rng {
	case RangeWeek:
		return shiftWindows(now, func(t time.Time, n int) time.Time { return t.AddDate(0, 0, -7*n) })
	case RangeMonth:
		return shiftWindows(now, func(t time.Time, n int) time.Time { return t.AddDate(0, -n, 0) })
	case RangeYear:
		return shiftWindows(now, func(t time.Time, n int) time.Time { return t.AddDate(-n, 0, 0) })
	default:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		yesterday := midnight.AddDate(0, 0, -1)
		yesterdayEnd := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
		current = Window{Start: midnight, End: now}
		previous = Window{Start: yesterday, End: yesterdayEnd, ClosedEnd: true}
		return current, previous
	}
}

func shiftWindows(now time.Time, back func(time.Time, int) time.Time) (Window, Window) {
	oneBack := back(now, 1)
	twoBack := back(now, 2)
	return Window{Start: oneBack, End: now}, Window{Start: twoBack, End: oneBack, ClosedEnd: true}
}
