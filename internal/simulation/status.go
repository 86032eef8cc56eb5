package simulation

import (
	"time"

	"epicast/internal/calendar"
	"epicast/internal/epic"
)

// DerivedStatus is the closed set of schedule states an epic can be in.
type DerivedStatus string

const (
	StatusNotStarted DerivedStatus = "not_started"
	StatusOnTrack    DerivedStatus = "on_track"
	StatusNearEnd    DerivedStatus = "near_end"
	StatusDueToday   DerivedStatus = "due_today"
	StatusDelayed    DerivedStatus = "delayed"
	StatusDelivered  DerivedStatus = "delivered"
	StatusArchived   DerivedStatus = "archived"
)

// DefaultNearEndThreshold is the remaining-working-day span treated as the
// closing stretch of an epic.
const DefaultNearEndThreshold = 5

// Derived bundles a schedule state with its working-day measurements. All
// delay fields share one sign convention: positive means behind schedule.
// Nil means not measurable for that epic.
type Derived struct {
	Status            DerivedStatus
	DelayVsDue        *int // delivery (or today, once late) vs the due date
	DelayInStart      *int // today vs planned start, unstarted epics only
	RemainingWorkDays *int // today vs due date, negative once overdue
	DaysInProgress    *int // inclusive working days since the actual start
}

// DeriveStatus classifies one epic as of today. Branches are checked in
// priority order: archived, delivered, not started, then the in-progress
// comparison against the due date (falling back to the planned end when no
// due date is set). Every epic maps to exactly one status; measurements
// that do not apply stay nil.
func DeriveStatus(e epic.Epic, today time.Time, cal *calendar.Calendar, nearEnd int) Derived {
	if nearEnd <= 0 {
		nearEnd = DefaultNearEndThreshold
	}
	today = calendar.DateOf(today)

	// 1. Archived work measures nothing.
	if e.Archived() {
		return Derived{Status: StatusArchived}
	}

	// 2. Delivered: compare the actual end against the due date.
	if e.EndDate != nil {
		d := Derived{Status: StatusDelivered}
		if due := dueReference(e); due != nil {
			d.DelayVsDue = intPtr(cal.SignedWorkingDays(*due, *e.EndDate))
		}
		if e.StartDate != nil {
			d.DaysInProgress = inclusiveDays(cal, *e.StartDate, *e.EndDate)
		}
		return d
	}

	// 3. Not started: no actual start date yet. The start delay only exists
	// once the planned start is strictly past.
	if e.StartDate == nil {
		d := Derived{Status: StatusNotStarted}
		if e.PlannedStartDate != nil && calendar.DateOf(*e.PlannedStartDate).Before(today) {
			if late, err := cal.WorkingDaysBetween(*e.PlannedStartDate, today); err == nil {
				d.DelayInStart = intPtr(late)
			}
		}
		if due := dueReference(e); due != nil {
			d.RemainingWorkDays = intPtr(cal.SignedWorkingDays(today, *due))
		}
		return d
	}

	// 4. In progress: classify against the due date.
	d := Derived{Status: StatusOnTrack}
	if !calendar.DateOf(*e.StartDate).After(today) {
		d.DaysInProgress = inclusiveDays(cal, *e.StartDate, today)
	}

	due := dueReference(e)
	if due == nil {
		return d // nothing to measure against
	}
	dueDay := calendar.DateOf(*due)
	d.RemainingWorkDays = intPtr(cal.SignedWorkingDays(today, dueDay))

	switch {
	case today.After(dueDay):
		d.Status = StatusDelayed
		d.DelayVsDue = intPtr(cal.SignedWorkingDays(dueDay, today))
	case today.Equal(dueDay):
		d.Status = StatusDueToday
	case *d.RemainingWorkDays <= nearEnd:
		d.Status = StatusNearEnd
	}
	return d
}

// dueReference returns the date delays are measured against: the due date
// when set, else the planned end.
func dueReference(e epic.Epic) *time.Time {
	if e.DueDate != nil {
		return e.DueDate
	}
	return e.PlannedEndDate
}

func inclusiveDays(cal *calendar.Calendar, a, b time.Time) *int {
	days, err := cal.WorkingDaysInclusive(a, b)
	if err != nil {
		return nil
	}
	return intPtr(days)
}

func intPtr(v int) *int { return &v }
