package jira

import (
	"slices"
	"strings"
	"time"

	"epicast/internal/calendar"
	"epicast/internal/epic"
)

// MapEpic transforms a Jira DTO into the normalized domain record. Date
// custom fields win; when they were never filled, the changelog transition
// history stands in, and completed epics fall back to the resolution date
// for their end.
func MapEpic(item IssueDTO, cfg Config) epic.Epic {
	e := epic.Epic{
		Key:      item.Key,
		Summary:  item.Fields.Summary,
		Status:   item.Fields.Status.Name,
		Category: mapCategory(item.Fields),
		Labels:   item.Fields.Labels,
	}
	if len(item.Fields.FixVersions) > 0 {
		e.Cycle = item.Fields.FixVersions[0].Name
	}
	if item.Fields.Assignee != nil {
		e.Assignee = item.Fields.Assignee.DisplayName
	}

	e.StartDate = parseDatePtr(item.Fields.StartDate)
	e.EndDate = parseDatePtr(item.Fields.EndDate)
	e.DueDate = parseDatePtr(item.Fields.DueDate)

	if item.Changelog != nil {
		start, end := InferDatesFromChangelog(item.Changelog, cfg.StartStatus, cfg.DoneStatus)
		if e.StartDate == nil {
			e.StartDate = start
		}
		if e.EndDate == nil && e.Category == epic.CategoryDone {
			e.EndDate = end
		}
	}

	if e.EndDate == nil && e.Category == epic.CategoryDone && item.Fields.ResolutionDate != "" {
		if t, err := ParseTime(item.Fields.ResolutionDate); err == nil {
			d := calendar.DateOf(t)
			e.EndDate = &d
		}
	}

	return e
}

// MapEpics maps a whole search result.
func MapEpics(items []IssueDTO, cfg Config) []epic.Epic {
	epics := make([]epic.Epic, 0, len(items))
	for _, item := range items {
		epics = append(epics, MapEpic(item, cfg))
	}
	return epics
}

// mapCategory folds the tracker status into the domain lifecycle buckets.
// Jira has no archived status category, so an Archived status name or an
// archived label marks shelved epics.
func mapCategory(f FieldsDTO) epic.StatusCategory {
	if strings.EqualFold(f.Status.Name, "Archived") {
		return epic.CategoryArchived
	}
	for _, l := range f.Labels {
		if strings.EqualFold(l, "archived") {
			return epic.CategoryArchived
		}
	}
	switch f.Status.StatusCategory.Key {
	case "done":
		return epic.CategoryDone
	case "indeterminate":
		return epic.CategoryInProgress
	default:
		return epic.CategoryOpen
	}
}

// InferDatesFromChangelog derives the actual start and end from status
// transitions: the first move into startStatus and the last move into
// doneStatus (last, so reopened epics keep their final close). Either may
// come back nil when no matching transition exists.
func InferDatesFromChangelog(changelog *ChangelogDTO, startStatus, doneStatus string) (*time.Time, *time.Time) {
	type statusChange struct {
		to   string
		date time.Time
	}

	var changes []statusChange
	for _, h := range changelog.Histories {
		hDate, err := ParseTime(h.Created)
		if err != nil {
			continue
		}
		for _, itm := range h.Items {
			if itm.Field == "status" {
				changes = append(changes, statusChange{to: itm.ToString, date: hDate})
			}
		}
	}
	slices.SortFunc(changes, func(a, b statusChange) int {
		return a.date.Compare(b.date)
	})

	var start, end *time.Time
	for _, ch := range changes {
		switch {
		case start == nil && strings.EqualFold(ch.to, startStatus):
			d := calendar.DateOf(ch.date)
			start = &d
		case strings.EqualFold(ch.to, doneStatus):
			d := calendar.DateOf(ch.date)
			end = &d
		}
	}
	return start, end
}

func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}
