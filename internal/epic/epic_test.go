package epic

import (
	"testing"
	"time"
)

func TestStartReference(t *testing.T) {
	actual := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	planned := time.Date(2026, time.February, 16, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		epic     Epic
		expected *time.Time
	}{
		{"ActualWinsOverPlanned", Epic{StartDate: &actual, PlannedStartDate: &planned}, &actual},
		{"PlannedWhenNoActual", Epic{PlannedStartDate: &planned}, &planned},
		{"NilWhenNeither", Epic{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.epic.StartReference()
			switch {
			case got == nil && tt.expected != nil:
				t.Errorf("StartReference() = nil, want %v", *tt.expected)
			case got != nil && tt.expected == nil:
				t.Errorf("StartReference() = %v, want nil", *got)
			case got != nil && !got.Equal(*tt.expected):
				t.Errorf("StartReference() = %v, want %v", *got, *tt.expected)
			}
		})
	}
}

func TestClosedAndArchived(t *testing.T) {
	end := time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC)

	if (Epic{}).Closed() {
		t.Error("Closed() = true for epic without end date, want false")
	}
	if !(Epic{EndDate: &end}).Closed() {
		t.Error("Closed() = false for epic with end date, want true")
	}
	if !(Epic{Category: CategoryArchived}).Archived() {
		t.Error("Archived() = false for archived category, want true")
	}
	if (Epic{Category: CategoryDone}).Archived() {
		t.Error("Archived() = true for done category, want false")
	}
}
