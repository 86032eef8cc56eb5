package simulation

import (
	"reflect"
	"testing"
	"time"

	"epicast/internal/calendar"
	"epicast/internal/epic"
)

func dp(t time.Time) *time.Time { return &t }

// DeriveStatus must map every combination of category, dates, and due-date
// position to exactly one of the seven statuses, with the sign convention
// positive = behind schedule on every measurement.
func TestDeriveStatusMatrix(t *testing.T) {
	cal := calendar.New(nil)
	today := date(2026, time.March, 4) // Wednesday

	monday := date(2026, time.March, 2)
	tuesday := date(2026, time.March, 3)
	friday := date(2026, time.March, 6)
	nextMonday := date(2026, time.March, 9)

	tests := []struct {
		name     string
		epic     epic.Epic
		expected Derived
	}{
		{
			"Archived",
			epic.Epic{Key: "EP-1", Category: epic.CategoryArchived, DueDate: dp(monday)},
			Derived{Status: StatusArchived},
		},
		{
			"DeliveredLate",
			epic.Epic{Key: "EP-2", Category: epic.CategoryDone,
				StartDate: dp(monday), EndDate: dp(today), DueDate: dp(monday)},
			Derived{Status: StatusDelivered, DelayVsDue: intPtr(2), DaysInProgress: intPtr(3)},
		},
		{
			"DeliveredEarly",
			epic.Epic{Key: "EP-3", Category: epic.CategoryDone,
				StartDate: dp(monday), EndDate: dp(monday), DueDate: dp(today)},
			Derived{Status: StatusDelivered, DelayVsDue: intPtr(-2), DaysInProgress: intPtr(1)},
		},
		{
			"DeliveredOnDueDate",
			epic.Epic{Key: "EP-4", Category: epic.CategoryDone,
				StartDate: dp(monday), EndDate: dp(friday), DueDate: dp(friday)},
			Derived{Status: StatusDelivered, DelayVsDue: intPtr(0), DaysInProgress: intPtr(5)},
		},
		{
			"DeliveredPlannedEndFallback",
			epic.Epic{Key: "EP-5", Category: epic.CategoryDone,
				StartDate: dp(monday), EndDate: dp(today), PlannedEndDate: dp(tuesday)},
			Derived{Status: StatusDelivered, DelayVsDue: intPtr(1), DaysInProgress: intPtr(3)},
		},
		{
			"DeliveredNoDueDate",
			epic.Epic{Key: "EP-6", Category: epic.CategoryDone,
				StartDate: dp(monday), EndDate: dp(today)},
			Derived{Status: StatusDelivered, DaysInProgress: intPtr(3)},
		},
		{
			"NotStartedNoDates",
			epic.Epic{Key: "EP-7", Category: epic.CategoryOpen},
			Derived{Status: StatusNotStarted},
		},
		{
			"NotStartedPlannedInFuture",
			epic.Epic{Key: "EP-8", Category: epic.CategoryOpen, PlannedStartDate: dp(friday)},
			Derived{Status: StatusNotStarted},
		},
		{
			"NotStartedOverdueToStart",
			epic.Epic{Key: "EP-9", Category: epic.CategoryOpen,
				PlannedStartDate: dp(monday), DueDate: dp(nextMonday)},
			Derived{Status: StatusNotStarted, DelayInStart: intPtr(2), RemainingWorkDays: intPtr(3)},
		},
		{
			"InProgressDelayed",
			epic.Epic{Key: "EP-10", Category: epic.CategoryInProgress,
				StartDate: dp(monday), DueDate: dp(tuesday)},
			Derived{Status: StatusDelayed, DelayVsDue: intPtr(1),
				RemainingWorkDays: intPtr(-1), DaysInProgress: intPtr(3)},
		},
		{
			"InProgressDueToday",
			epic.Epic{Key: "EP-11", Category: epic.CategoryInProgress,
				StartDate: dp(monday), DueDate: dp(today)},
			Derived{Status: StatusDueToday, RemainingWorkDays: intPtr(0), DaysInProgress: intPtr(3)},
		},
		{
			"InProgressNearEnd",
			epic.Epic{Key: "EP-12", Category: epic.CategoryInProgress,
				StartDate: dp(monday), DueDate: dp(nextMonday)},
			Derived{Status: StatusNearEnd, RemainingWorkDays: intPtr(3), DaysInProgress: intPtr(3)},
		},
		{
			"InProgressNearEndBoundary",
			epic.Epic{Key: "EP-13", Category: epic.CategoryInProgress,
				StartDate: dp(monday), DueDate: dp(date(2026, time.March, 11))},
			Derived{Status: StatusNearEnd, RemainingWorkDays: intPtr(5), DaysInProgress: intPtr(3)},
		},
		{
			"InProgressOnTrack",
			epic.Epic{Key: "EP-14", Category: epic.CategoryInProgress,
				StartDate: dp(monday), DueDate: dp(date(2026, time.March, 12))},
			Derived{Status: StatusOnTrack, RemainingWorkDays: intPtr(6), DaysInProgress: intPtr(3)},
		},
		{
			"InProgressPlannedEndFallback",
			epic.Epic{Key: "EP-15", Category: epic.CategoryInProgress,
				StartDate: dp(monday), PlannedEndDate: dp(tuesday)},
			Derived{Status: StatusDelayed, DelayVsDue: intPtr(1),
				RemainingWorkDays: intPtr(-1), DaysInProgress: intPtr(3)},
		},
		{
			"InProgressNoDueDate",
			epic.Epic{Key: "EP-16", Category: epic.CategoryInProgress, StartDate: dp(monday)},
			Derived{Status: StatusOnTrack, DaysInProgress: intPtr(3)},
		},
		{
			"StartDateInFuture",
			epic.Epic{Key: "EP-17", Category: epic.CategoryInProgress,
				StartDate: dp(friday), DueDate: dp(nextMonday)},
			Derived{Status: StatusNearEnd, RemainingWorkDays: intPtr(3)},
		},
	}

	seen := map[DerivedStatus]bool{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.epic, today, cal, 5)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("DeriveStatus(%s) = %+v, want %+v", tt.epic.Key, got, tt.expected)
			}
			seen[got.Status] = true
		})
	}

	all := []DerivedStatus{
		StatusNotStarted, StatusOnTrack, StatusNearEnd, StatusDueToday,
		StatusDelayed, StatusDelivered, StatusArchived,
	}
	for _, s := range all {
		if !seen[s] {
			t.Errorf("matrix never produced status %q", s)
		}
	}
}

func TestDeriveStatusDefaultThreshold(t *testing.T) {
	cal := calendar.New(nil)
	today := date(2026, time.March, 4)

	// Five working days out is the default near-end boundary.
	e := epic.Epic{Key: "EP-1", Category: epic.CategoryInProgress,
		StartDate: dp(date(2026, time.March, 2)), DueDate: dp(date(2026, time.March, 11))}

	if got := DeriveStatus(e, today, cal, 0); got.Status != StatusNearEnd {
		t.Errorf("DeriveStatus() with zero threshold = %q, want %q", got.Status, StatusNearEnd)
	}
}

func TestDeriveStatusHonorsHolidays(t *testing.T) {
	// Thursday and Friday as holidays push the remaining working days to
	// the due date from 3 down to 1.
	cal := calendar.New([]time.Time{date(2026, time.March, 5), date(2026, time.March, 6)})
	today := date(2026, time.March, 4)

	e := epic.Epic{Key: "EP-1", Category: epic.CategoryInProgress,
		StartDate: dp(date(2026, time.March, 2)), DueDate: dp(date(2026, time.March, 9))}

	got := DeriveStatus(e, today, cal, 5)
	if got.RemainingWorkDays == nil || *got.RemainingWorkDays != 1 {
		t.Errorf("RemainingWorkDays = %v, want 1", got.RemainingWorkDays)
	}
}
