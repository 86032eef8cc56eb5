// Package epic defines the normalized unit of forecastable work shared by
// the tracker client, the plan catalog, and the simulation core.
package epic

import "time"

// StatusCategory is the coarse lifecycle bucket a raw tracker status maps to.
type StatusCategory string

const (
	CategoryOpen       StatusCategory = "open"
	CategoryInProgress StatusCategory = "in_progress"
	CategoryDone       StatusCategory = "done"
	CategoryArchived   StatusCategory = "archived"
)

// Epic is one unit of forecastable work. Date pointers are nil when the
// tracker or plan catalog has no value; counts use zero for unset.
type Epic struct {
	Key      string
	Summary  string
	Status   string // raw tracker status name
	Category StatusCategory
	Cycle    string // planning period, taken from the first fix version
	Assignee string
	Labels   []string

	PlannedStartDate *time.Time
	PlannedEndDate   *time.Time
	StartDate        *time.Time // actual
	DueDate          *time.Time
	EndDate          *time.Time // actual

	DevsPlanned   int
	DevsUsed      int
	BestEstimate  *float64 // optimistic working-day estimate
	WorstEstimate *float64
}

// Closed reports whether work finished, meaning an actual end date exists.
func (e Epic) Closed() bool { return e.EndDate != nil }

// Archived reports whether the epic was shelved rather than delivered.
func (e Epic) Archived() bool { return e.Category == CategoryArchived }

// StartReference returns the date simulations anchor on: the actual start
// when known, else the planned start. Nil when neither is set.
func (e Epic) StartReference() *time.Time {
	if e.StartDate != nil {
		return e.StartDate
	}
	return e.PlannedStartDate
}
