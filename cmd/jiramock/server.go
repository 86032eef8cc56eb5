package main

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"epicast/internal/jira"
)

// server answers just enough of the Jira search and issue-edit API to run
// the forecasting pipeline against generated data. Both the Cloud (v3) and
// Data Center (v2) path prefixes are accepted.
type server struct {
	mu     sync.Mutex
	issues []jira.IssueDTO
}

func newServer(issues []jira.IssueDTO) *server {
	return &server{issues: issues}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	for _, version := range []string{"2", "3"} {
		mux.HandleFunc("/rest/api/"+version+"/search", s.handleSearch)
		mux.HandleFunc("/rest/api/"+version+"/issue/", s.handleIssueUpdate)
	}
	return mux
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	startAt, _ := strconv.Atoi(q.Get("startAt"))
	maxResults, err := strconv.Atoi(q.Get("maxResults"))
	if err != nil || maxResults <= 0 {
		maxResults = 50
	}
	expand := strings.Contains(q.Get("expand"), "changelog")

	s.mu.Lock()
	matched := filterByJQL(s.issues, q.Get("jql"))
	s.mu.Unlock()

	end := startAt + maxResults
	if startAt > len(matched) {
		startAt = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]jira.IssueDTO, 0, end-startAt)
	for _, issue := range matched[startAt:end] {
		if !expand {
			issue.Changelog = nil
		}
		page = append(page, issue)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jira.SearchResponse{
		Total:      len(matched),
		StartAt:    startAt,
		MaxResults: maxResults,
		Issues:     page,
	})
}

func (s *server) handleIssueUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	key := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.issues {
		if s.issues[i].Key != key {
			continue
		}
		if v, ok := body.Fields[jira.StartDateField]; ok {
			s.issues[i].Fields.StartDate = v
		}
		if v, ok := body.Fields[jira.EndDateField]; ok {
			s.issues[i].Fields.EndDate = v
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

var fixVersionPattern = regexp.MustCompile(`fixVersion = "([^"]+)"`)

// filterByJQL recognizes the handful of clause shapes the pipeline emits.
// Anything unrecognized returns the full population.
func filterByJQL(issues []jira.IssueDTO, jql string) []jira.IssueDTO {
	var keep func(jira.IssueDTO) bool

	switch {
	case strings.Contains(jql, "is EMPTY"):
		keep = func(i jira.IssueDTO) bool {
			return isDone(i) && (i.Fields.StartDate == "" || i.Fields.EndDate == "")
		}
	case strings.Contains(jql, "statusCategory != Done"):
		cycle := ""
		if m := fixVersionPattern.FindStringSubmatch(jql); m != nil {
			cycle = m[1]
		}
		keep = func(i jira.IssueDTO) bool {
			return !isDone(i) && (cycle == "" || hasCycle(i, cycle))
		}
	case strings.Contains(jql, "statusCategory = Done"):
		keep = isDone
	default:
		keep = func(jira.IssueDTO) bool { return true }
	}

	var out []jira.IssueDTO
	for _, issue := range issues {
		if keep(issue) {
			out = append(out, issue)
		}
	}
	return out
}

func isDone(i jira.IssueDTO) bool {
	return i.Fields.Status.StatusCategory.Key == "done"
}

func hasCycle(i jira.IssueDTO, cycle string) bool {
	for _, v := range i.Fields.FixVersions {
		if v.Name == cycle {
			return true
		}
	}
	return false
}
