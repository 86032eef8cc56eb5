package jira

import "time"

// Date-typed custom fields carrying the actual start and end. Pinned ids,
// matching the site schema this tool targets.
const (
	StartDateField = "customfield_10015"
	EndDateField   = "customfield_10233"
)

// SearchResponse is the top-level container for Jira search results.
type SearchResponse struct {
	Total      int        `json:"total"`
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Issues     []IssueDTO `json:"issues"`
}

// IssueDTO represents a single issue in the Jira search response.
type IssueDTO struct {
	Key       string        `json:"key"`
	Fields    FieldsDTO     `json:"fields"`
	Changelog *ChangelogDTO `json:"changelog,omitempty"`
}

// FieldsDTO contains the specific fields we care about. Date custom fields
// arrive as plain yyyy-mm-dd strings, or null when never filled.
type FieldsDTO struct {
	Summary string `json:"summary"`
	Status  struct {
		Name           string `json:"name"`
		StatusCategory struct {
			Key string `json:"key"`
		} `json:"statusCategory"`
	} `json:"status"`
	DueDate     string `json:"duedate"`
	StartDate   string `json:"customfield_10015"`
	EndDate     string `json:"customfield_10233"`
	FixVersions []struct {
		Name string `json:"name"`
	} `json:"fixVersions"`
	Labels   []string `json:"labels"`
	Assignee *struct {
		DisplayName string `json:"displayName"`
	} `json:"assignee"`
	ResolutionDate string `json:"resolutiondate"`
}

// ChangelogDTO contains historical transitions.
type ChangelogDTO struct {
	Histories []HistoryDTO `json:"histories"`
}

// HistoryDTO is a single entry in the changelog.
type HistoryDTO struct {
	Created string    `json:"created"`
	Items   []ItemDTO `json:"items"`
}

// ItemDTO is a single field change within a history entry.
type ItemDTO struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// ParseTime is a helper for the strict Jira timestamp format.
func ParseTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000-0700", s)
}

// ParseDate parses the plain date form used by Jira date custom fields.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
