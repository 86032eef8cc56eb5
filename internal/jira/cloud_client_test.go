package jira

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(url string) *cloudClient {
	return newCloudClient(Config{
		BaseURL:  url,
		Email:    "dev@example.com",
		APIToken: "token-123",
		Project:  "EP",
		PageSize: 2,
	})
}

func TestSearchEpicsPagination(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/search" {
			t.Errorf("search path = %q, want /rest/api/3/search", r.URL.Path)
		}
		if email, token, ok := r.BasicAuth(); !ok || email != "dev@example.com" || token != "token-123" {
			t.Errorf("basic auth = %q/%q/%v", email, token, ok)
		}
		q := r.URL.Query()
		if q.Get("expand") != "changelog" {
			t.Errorf("expand = %q, want changelog", q.Get("expand"))
		}
		if q.Get("jql") != "project = EP" {
			t.Errorf("jql = %q", q.Get("jql"))
		}
		pages = append(pages, q.Get("startAt"))

		resp := SearchResponse{Total: 3, MaxResults: 2}
		switch q.Get("startAt") {
		case "0":
			resp.StartAt = 0
			resp.Issues = []IssueDTO{{Key: "EP-1"}, {Key: "EP-2"}}
		case "2":
			resp.StartAt = 2
			resp.Issues = []IssueDTO{{Key: "EP-3"}}
		default:
			t.Errorf("unexpected startAt %q", q.Get("startAt"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	issues, err := testClient(server.URL).SearchEpics("project = EP", true)
	if err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("SearchEpics() returned %d issues, want 3", len(issues))
	}
	if issues[0].Key != "EP-1" || issues[2].Key != "EP-3" {
		t.Errorf("SearchEpics() keys = %q..%q", issues[0].Key, issues[2].Key)
	}
	if len(pages) != 2 || pages[0] != "0" || pages[1] != "2" {
		t.Errorf("startAt progression = %v, want [0 2]", pages)
	}
}

func TestSearchEpicsWithoutChangelog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if expand := r.URL.Query().Get("expand"); expand != "" {
			t.Errorf("expand = %q, want empty", expand)
		}
		json.NewEncoder(w).Encode(SearchResponse{Total: 0})
	}))
	defer server.Close()

	if _, err := testClient(server.URL).SearchEpics("project = EP", false); err != nil {
		t.Fatalf("SearchEpics() error = %v", err)
	}
}

func TestSearchEpicsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).SearchEpics("project = EP", false)
	if err == nil {
		t.Fatal("SearchEpics() error = nil, want authentication failure")
	}
	if !strings.Contains(err.Error(), "JIRA_EMAIL") {
		t.Errorf("SearchEpics() error = %v, want hint about credentials", err)
	}
}

func TestUpdateEpicDates(t *testing.T) {
	var body map[string]map[string]*string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if r.URL.Path != "/rest/api/3/issue/EP-1" {
			t.Errorf("path = %q, want /rest/api/3/issue/EP-1", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("request body %q: %v", raw, err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	if err := testClient(server.URL).UpdateEpicDates("EP-1", &start, &end); err != nil {
		t.Fatalf("UpdateEpicDates() error = %v", err)
	}

	fields := body["fields"]
	if got := fields[StartDateField]; got == nil || *got != "2026-03-02" {
		t.Errorf("fields[%s] = %v, want 2026-03-02", StartDateField, got)
	}
	if got := fields[EndDateField]; got == nil || *got != "2026-03-06" {
		t.Errorf("fields[%s] = %v, want 2026-03-06", EndDateField, got)
	}
}

func TestUpdateEpicDatesPartial(t *testing.T) {
	var body map[string]map[string]*string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if err := testClient(server.URL).UpdateEpicDates("EP-1", &start, nil); err != nil {
		t.Fatalf("UpdateEpicDates() error = %v", err)
	}
	fields := body["fields"]
	if _, present := fields[EndDateField]; present {
		t.Errorf("fields = %v, end date should be omitted", fields)
	}
	if got := fields[StartDateField]; got == nil || *got != "2026-03-02" {
		t.Errorf("fields[%s] = %v, want 2026-03-02", StartDateField, got)
	}
}

func TestUpdateEpicDatesNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when both dates are nil")
	}))
	defer server.Close()

	if err := testClient(server.URL).UpdateEpicDates("EP-1", nil, nil); err != nil {
		t.Fatalf("UpdateEpicDates() error = %v", err)
	}
}
