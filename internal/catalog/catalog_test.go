package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"epicast/internal/epic"
)

const planYAML = `holidays:
  - 2026-01-01
  - 2026-05-01

epics:
  EP-1:
    planned_start: 2026-03-02
    planned_end: 2026-04-10
    due: 2026-04-15
    devs_planned: 3
    devs_used: 2
    best_estimate: 20
    worst_estimate: 45.5
  EP-2:
    planned_start: 2026-03-09
`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cat, err := Load(writePlan(t, planYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cat.Holidays) != 2 {
		t.Fatalf("Load() holidays = %d, want 2", len(cat.Holidays))
	}
	if !cat.Holidays[0].Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Load() first holiday = %v, want 2026-01-01", cat.Holidays[0])
	}

	entry, ok := cat.Epics["EP-1"]
	if !ok {
		t.Fatal("Load() missing entry for EP-1")
	}
	if entry.PlannedStart == nil || !entry.PlannedStart.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Load() EP-1 planned_start = %v, want 2026-03-02", entry.PlannedStart)
	}
	if entry.Due == nil || !entry.Due.Equal(time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Load() EP-1 due = %v, want 2026-04-15", entry.Due)
	}
	if entry.DevsPlanned != 3 || entry.DevsUsed != 2 {
		t.Errorf("Load() EP-1 devs = %d/%d, want 3/2", entry.DevsPlanned, entry.DevsUsed)
	}
	if entry.BestEstimate == nil || *entry.BestEstimate != 20 {
		t.Errorf("Load() EP-1 best_estimate = %v, want 20", entry.BestEstimate)
	}
	if entry.WorstEstimate == nil || *entry.WorstEstimate != 45.5 {
		t.Errorf("Load() EP-1 worst_estimate = %v, want 45.5", entry.WorstEstimate)
	}

	sparse, ok := cat.Epics["EP-2"]
	if !ok {
		t.Fatal("Load() missing entry for EP-2")
	}
	if sparse.PlannedEnd != nil || sparse.Due != nil || sparse.BestEstimate != nil {
		t.Errorf("Load() EP-2 should leave unset fields nil: %+v", sparse)
	}
}

func TestLoadRejectsBadDate(t *testing.T) {
	_, err := Load(writePlan(t, "epics:\n  EP-9:\n    due: 15/04/2026\n"))
	if err == nil {
		t.Fatal("Load() error = nil, want date parse failure")
	}
	if !strings.Contains(err.Error(), "EP-9") {
		t.Errorf("Load() error = %v, want epic key in message", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() error = nil, want read failure")
	}
}

func TestApply(t *testing.T) {
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	plannedStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	best := 20.0

	cat := &Catalog{Epics: map[string]Entry{
		"EP-1": {PlannedStart: &plannedStart, Due: &due, DevsPlanned: 3, BestEstimate: &best},
	}}

	trackerDue := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	epics := cat.Apply([]epic.Epic{
		{Key: "EP-1", DueDate: &trackerDue},
		{Key: "EP-7"},
	})

	got := epics[0]
	if got.PlannedStartDate == nil || !got.PlannedStartDate.Equal(plannedStart) {
		t.Errorf("Apply() planned start = %v, want filled from plan", got.PlannedStartDate)
	}
	if got.DueDate == nil || !got.DueDate.Equal(trackerDue) {
		t.Errorf("Apply() due = %v, tracker value must win", got.DueDate)
	}
	if got.DevsPlanned != 3 {
		t.Errorf("Apply() devs planned = %d, want 3", got.DevsPlanned)
	}
	if got.BestEstimate == nil || *got.BestEstimate != best {
		t.Errorf("Apply() best estimate = %v, want %v", got.BestEstimate, best)
	}

	if epics[1].PlannedStartDate != nil || epics[1].DevsPlanned != 0 {
		t.Errorf("Apply() changed an epic missing from the plan: %+v", epics[1])
	}
}

func TestApplyNilCatalog(t *testing.T) {
	var cat *Catalog
	epics := cat.Apply([]epic.Epic{{Key: "EP-1"}})
	if len(epics) != 1 || epics[0].Key != "EP-1" {
		t.Errorf("Apply() on nil catalog = %+v, want input unchanged", epics)
	}
}
