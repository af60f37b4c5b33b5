// Package timewindow holds the pure time arithmetic shared by the
// availability engine and the reminder scheduler. All wall-clock reasoning
// happens in the business's fixed civil timezone; only the final fire-time
// comparisons work on absolute instants.
package timewindow

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// Clock is a local wall-clock time expressed as minutes since midnight.
// It is date-unaware; day rollover is the caller's problem.
type Clock int

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	return Clock(h*60 + m), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// AddMinutes advances the clock, wrapping at the 24h boundary. The result
// for a wrap is a next-day time; callers needing the date must track the
// rollover themselves.
func (c Clock) AddMinutes(minutes int) Clock {
	v := (int(c) + minutes) % minutesPerDay
	if v < 0 {
		v += minutesPerDay
	}
	return Clock(v)
}

// Overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
// Half-open semantics: an interval ending exactly when another begins does
// not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Contains reports whether [inStart, inEnd) lies entirely within
// [outStart, outEnd).
func Contains(outStart, outEnd, inStart, inEnd int) bool {
	return inStart >= outStart && inEnd <= outEnd
}

// ParseDate parses a calendar day in "2006-01-02" form. The result carries
// no clock or zone meaning beyond year, month and day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// SameDate reports whether two values name the same calendar day,
// ignoring clock and zone.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// InstantAt converts a calendar day plus minute-of-day into an absolute
// instant in the given location.
func InstantAt(date time.Time, minute int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, minute, 0, 0, loc)
}

// WithinWindow reports whether now falls inside the tolerance window
// around fireAt. The window absorbs scheduler jitter between the one-shot
// trigger and the sweep.
func WithinWindow(now, fireAt time.Time, tolerance time.Duration) bool {
	diff := now.Sub(fireAt)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
