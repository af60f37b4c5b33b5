package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(570), c)
	assert.Equal(t, "09:30", c.String())

	_, err = ParseClock("24:00")
	assert.Error(t, err)
	_, err = ParseClock("12:60")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)
}

func TestAddMinutesWraps(t *testing.T) {
	c, _ := ParseClock("23:30")
	assert.Equal(t, "00:15", c.AddMinutes(45).String())

	c, _ = ParseClock("00:10")
	assert.Equal(t, "23:40", c.AddMinutes(-30).String())

	c, _ = ParseClock("10:00")
	assert.Equal(t, "11:00", c.AddMinutes(60).String())
}

func TestOverlapsIsSymmetric(t *testing.T) {
	cases := []struct {
		aStart, aEnd, bStart, bEnd int
		want                       bool
	}{
		{540, 600, 570, 630, true},  // partial overlap
		{540, 600, 600, 660, false}, // abutting, half-open
		{540, 600, 540, 600, true},  // identical
		{540, 600, 560, 580, true},  // contained
		{540, 600, 700, 760, false}, // disjoint
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
		assert.Equal(t, tc.want, Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd))
	}
}

func TestOverlapsBoundary(t *testing.T) {
	// [9:00,10:00) vs [10:00,11:00) never overlap.
	assert.False(t, Overlaps(9*60, 10*60, 10*60, 11*60))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains(540, 1020, 720, 780))
	assert.True(t, Contains(540, 1020, 540, 1020))
	assert.False(t, Contains(540, 1020, 500, 600))
	assert.False(t, Contains(540, 1020, 1000, 1080))
}

func TestInstantAt(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tbilisi")
	require.NoError(t, err)

	date, err := ParseDate("2025-03-10")
	require.NoError(t, err)

	at := InstantAt(date, 14*60, loc)
	assert.Equal(t, 14, at.Hour())
	assert.Equal(t, loc, at.Location())
	assert.Equal(t, time.March, at.Month())
	assert.Equal(t, 10, at.Day())
}

func TestWithinWindow(t *testing.T) {
	fireAt := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	tol := 7 * time.Minute

	assert.True(t, WithinWindow(fireAt, fireAt, tol))
	assert.True(t, WithinWindow(fireAt.Add(5*time.Minute), fireAt, tol))
	assert.True(t, WithinWindow(fireAt.Add(-7*time.Minute), fireAt, tol))
	assert.False(t, WithinWindow(fireAt.Add(8*time.Minute), fireAt, tol))
	// A trigger two hours early is out of window, not fired.
	assert.False(t, WithinWindow(fireAt.Add(-2*time.Hour), fireAt, tol))
}

func TestSameDate(t *testing.T) {
	a := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 3, 10, 23, 59, 0, 0, time.FixedZone("x", 3600))
	c := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.True(t, SameDate(a, b))
	assert.False(t, SameDate(a, c))
}
