// Package jira fetches epics from Jira and normalizes them into the domain
// model. Two backends share one interface: Jira Cloud (REST v3, basic auth)
// and Jira Data Center (REST v2, personal access token). Searches page
// mechanically to the end; there is no retry or response caching here.
package jira

import (
	"fmt"
	"strings"
	"time"
)

// Client is the interface for interacting with Jira.
type Client interface {
	// SearchEpics runs a JQL query and returns every matching issue,
	// following pagination to the end. expandChangelog pulls the status
	// transition history used for date inference.
	SearchEpics(jql string, expandChangelog bool) ([]IssueDTO, error)
	// UpdateEpicDates writes the actual start and end date custom fields.
	// Nil values are left untouched; two nils make the call a no-op.
	UpdateEpicDates(key string, start, end *time.Time) error
}

// Config holds the authentication, scoping, and workflow settings for Jira.
type Config struct {
	BaseURL string

	// Cloud auth: account email plus API token.
	Email    string
	APIToken string

	// Data Center auth: personal access token. Setting it selects the
	// Data Center backend.
	BearerToken string

	// Minimum spacing between Data Center search requests. Zero means the
	// backend default.
	RequestDelay time.Duration

	// Query scope.
	Project   string
	TeamField string // JQL name of the squad field, e.g. Squad[Dropdown]
	Team      string // optional squad filter value

	// Workflow status names used when inferring dates from the changelog.
	StartStatus string
	DoneStatus  string

	PageSize int
}

// NewClient creates a new Jira client based on the provided configuration.
func NewClient(cfg Config) Client {
	if cfg.BearerToken != "" {
		return newDataCenterClient(cfg)
	}
	return newCloudClient(cfg)
}

// baseClause scopes every query to the configured project, issue type, and
// optional team.
func (c Config) baseClause() string {
	clauses := []string{
		fmt.Sprintf("project = %s", c.Project),
		"issuetype = Epic",
	}
	if c.Team != "" {
		field := c.TeamField
		if field == "" {
			field = "Squad[Dropdown]"
		}
		clauses = append(clauses, fmt.Sprintf("%q = %q", field, c.Team))
	}
	return strings.Join(clauses, " AND ")
}

// CompletedEpicsJQL selects the epics that feed the historical duration
// pool: done within the lookback window, newest first.
func (c Config) CompletedEpicsJQL(lookbackDays int) string {
	return fmt.Sprintf("%s AND statusCategory = Done AND resolved >= \"-%dd\" ORDER BY resolved DESC",
		c.baseClause(), lookbackDays)
}

// OpenEpicsJQL selects the epics to forecast, optionally narrowed to one
// planning cycle (fix version).
func (c Config) OpenEpicsJQL(cycle string) string {
	jql := c.baseClause() + " AND statusCategory != Done"
	if cycle != "" {
		jql += fmt.Sprintf(" AND fixVersion = %q", cycle)
	}
	return jql + " ORDER BY key ASC"
}

// MissingDatesJQL selects done epics whose start or end date custom field
// was never filled in, the targets of the update-dates backfill.
func (c Config) MissingDatesJQL() string {
	return fmt.Sprintf("%s AND statusCategory = Done AND (%s is EMPTY OR %s is EMPTY)",
		c.baseClause(), cfClause(StartDateField), cfClause(EndDateField))
}

// cfClause rewrites customfield_NNNNN into the cf[NNNNN] form JQL expects.
func cfClause(field string) string {
	return "cf[" + strings.TrimPrefix(field, "customfield_") + "]"
}
