// Package calendar provides working-day arithmetic. Every operation skips
// weekends and an injected holiday set; nothing here is timezone-clever,
// all math happens at calendar-date granularity.
package calendar

import (
	"fmt"
	"time"
)

const dayFormat = "2006-01-02"

// InvalidDateRangeError reports a calendar query whose end precedes its
// start. Callers that legitimately need a signed distance use
// SignedWorkingDays instead of relying on argument flipping.
type InvalidDateRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range: end %s precedes start %s",
		e.End.Format(dayFormat), e.Start.Format(dayFormat))
}

// Calendar answers working-day questions against a fixed holiday set.
type Calendar struct {
	holidays map[string]bool
}

// New builds a Calendar from the given holiday dates. Time-of-day and
// location are ignored; a holiday falling on a weekend is harmless.
func New(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]bool, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format(dayFormat)] = true
	}
	return c
}

// IsWorkingDay reports whether t falls on a weekday that is not a holiday.
func (c *Calendar) IsWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.holidays[t.Format(dayFormat)]
}

// AddWorkingDays returns the date n working days after t, walking backwards
// for negative n. The result is normalized to midnight UTC and always lands
// on a working day for n != 0; n = 0 returns t's date unchanged even when t
// is a weekend or holiday.
func (c *Calendar) AddWorkingDays(t time.Time, n int) time.Time {
	d := DateOf(t)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for remaining := n; remaining > 0; {
		d = d.AddDate(0, 0, step)
		if c.IsWorkingDay(d) {
			remaining--
		}
	}
	return d
}

// WorkingDaysBetween counts working days in the half-open interval (a, b]:
// a itself is never counted, b is counted when it is a working day. Under
// this convention it is the exact inverse of AddWorkingDays. Returns
// InvalidDateRangeError when b precedes a.
func (c *Calendar) WorkingDaysBetween(a, b time.Time) (int, error) {
	start, end := DateOf(a), DateOf(b)
	if end.Before(start) {
		return 0, &InvalidDateRangeError{Start: start, End: end}
	}
	count := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsWorkingDay(d) {
			count++
		}
	}
	return count, nil
}

// WorkingDaysInclusive counts working days in the closed interval [a, b],
// the "days worked" convention: a single-day task done on a weekday counts
// as one day. Returns InvalidDateRangeError when b precedes a.
func (c *Calendar) WorkingDaysInclusive(a, b time.Time) (int, error) {
	start, end := DateOf(a), DateOf(b)
	rest, err := c.WorkingDaysBetween(start, end)
	if err != nil {
		return 0, err
	}
	if c.IsWorkingDay(start) {
		rest++
	}
	return rest, nil
}

// SignedWorkingDays returns the working-day distance from a to b: positive
// when b lies ahead of a, negative when it lies behind, zero on the same
// date. Both directions use the WorkingDaysBetween convention.
func (c *Calendar) SignedWorkingDays(a, b time.Time) int {
	if DateOf(b).Before(DateOf(a)) {
		n, _ := c.WorkingDaysBetween(b, a)
		return -n
	}
	n, _ := c.WorkingDaysBetween(a, b)
	return n
}

// DateOf strips time-of-day and location, returning midnight UTC of the
// same calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
