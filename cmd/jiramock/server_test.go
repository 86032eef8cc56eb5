package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"epicast/internal/jira"
)

func epicFixture(key, statusName, categoryKey string) jira.IssueDTO {
	var issue jira.IssueDTO
	issue.Key = key
	issue.Fields.Summary = "Fixture " + key
	issue.Fields.Status.Name = statusName
	issue.Fields.Status.StatusCategory.Key = categoryKey
	return issue
}

func withCycle(issue jira.IssueDTO, cycle string) jira.IssueDTO {
	issue.Fields.FixVersions = []struct {
		Name string `json:"name"`
	}{{Name: cycle}}
	return issue
}

// fixtureServer serves three done epics (EP-2 missing its date fields) and
// two in-flight ones in different cycles.
func fixtureServer(t *testing.T) jira.Client {
	t.Helper()

	ep1 := epicFixture("EP-1", "Done", "done")
	ep1.Fields.StartDate = "2026-01-05"
	ep1.Fields.EndDate = "2026-01-23"
	ep1.Changelog = &jira.ChangelogDTO{Histories: []jira.HistoryDTO{{
		Created: "2026-01-05T09:00:00.000+0000",
		Items:   []jira.ItemDTO{{Field: "status", FromString: "Open", ToString: "In Progress"}},
	}}}

	ep2 := epicFixture("EP-2", "Done", "done")
	ep3 := epicFixture("EP-3", "Done", "done")
	ep3.Fields.StartDate = "2026-02-02"
	ep3.Fields.EndDate = "2026-02-20"

	ep4 := withCycle(epicFixture("EP-4", "In Progress", "indeterminate"), "2026-Q1")
	ep5 := withCycle(epicFixture("EP-5", "Refinement", "indeterminate"), "2026-Q2")

	ts := httptest.NewServer(newServer([]jira.IssueDTO{ep1, ep2, ep3, ep4, ep5}).routes())
	t.Cleanup(ts.Close)

	return jira.NewClient(jira.Config{
		BaseURL:  ts.URL,
		Email:    "dev@example.com",
		APIToken: "token",
		Project:  "EP",
		PageSize: 2,
	})
}

func TestServerCompletedSearchPaginates(t *testing.T) {
	client := fixtureServer(t)
	cfg := jira.Config{Project: "EP"}

	issues, err := client.SearchEpics(cfg.CompletedEpicsJQL(365), true)
	if err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("completed search returned %d epics, want 3", len(issues))
	}
	if issues[0].Changelog == nil {
		t.Error("expand=changelog did not carry the changelog through")
	}
}

func TestServerExpandOmitsChangelog(t *testing.T) {
	client := fixtureServer(t)

	issues, err := client.SearchEpics("project = EP AND statusCategory = Done", false)
	if err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
	for _, issue := range issues {
		if issue.Changelog != nil {
			t.Errorf("%s: changelog present without expand", issue.Key)
		}
	}
}

func TestServerCycleFilter(t *testing.T) {
	client := fixtureServer(t)
	cfg := jira.Config{Project: "EP"}

	issues, err := client.SearchEpics(cfg.OpenEpicsJQL("2026-Q1"), true)
	if err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
	if len(issues) != 1 || issues[0].Key != "EP-4" {
		t.Fatalf("cycle filter returned %v, want [EP-4]", keysOf(issues))
	}

	issues, err = client.SearchEpics(cfg.OpenEpicsJQL(""), true)
	if err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("open search returned %v, want both in-flight epics", keysOf(issues))
	}
}

func TestServerUpdateDatesRoundTrip(t *testing.T) {
	client := fixtureServer(t)
	cfg := jira.Config{Project: "EP"}

	issues, err := client.SearchEpics(cfg.MissingDatesJQL(), false)
	if err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
	if len(issues) != 1 || issues[0].Key != "EP-2" {
		t.Fatalf("missing-dates search returned %v, want [EP-2]", keysOf(issues))
	}

	start := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC)
	if err := client.UpdateEpicDates("EP-2", &start, &end); err != nil {
		t.Fatalf("UpdateEpicDates() error = %v", err)
	}

	issues, err = client.SearchEpics(cfg.MissingDatesJQL(), false)
	if err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("missing-dates search after update returned %v, want none", keysOf(issues))
	}
}

func TestServerUpdateUnknownKey(t *testing.T) {
	client := fixtureServer(t)

	start := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	if err := client.UpdateEpicDates("EP-999", &start, nil); err == nil {
		t.Fatal("UpdateEpicDates() on an unknown key should fail")
	}
}

func keysOf(issues []jira.IssueDTO) []string {
	keys := make([]string, len(issues))
	for i, issue := range issues {
		keys[i] = issue.Key
	}
	return keys
}
