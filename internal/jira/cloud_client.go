package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultPageSize = 100

// searchFields is everything the mapper consumes.
var searchFields = strings.Join([]string{
	"summary", "status", "duedate", "fixVersions", "labels", "assignee",
	"resolutiondate", StartDateField, EndDateField,
}, ",")

type cloudClient struct {
	cfg        Config
	httpClient *http.Client
}

func newCloudClient(cfg Config) *cloudClient {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	return &cloudClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

func (c *cloudClient) SearchEpics(jql string, expandChangelog bool) ([]IssueDTO, error) {
	var all []IssueDTO
	startAt := 0

	log.Info().Msg("Requesting epics from Jira")
	log.Debug().Str("jql", jql).Bool("changelog", expandChangelog).Msg("Jira search details")

	for {
		page, err := c.searchPage(jql, startAt, expandChangelog)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Issues...)
		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}

	log.Debug().Int("epics", len(all)).Msg("Jira search complete")
	return all, nil
}

func (c *cloudClient) searchPage(jql string, startAt int, expandChangelog bool) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", strconv.Itoa(startAt))
	params.Set("maxResults", strconv.Itoa(c.cfg.PageSize))
	params.Set("fields", searchFields)
	if expandChangelog {
		params.Set("expand", "changelog")
	}

	searchURL := fmt.Sprintf("%s/rest/api/3/search?%s", c.cfg.BaseURL, params.Encode())
	req, err := http.NewRequest(http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	c.authenticateRequest(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, "search", "JIRA_EMAIL and JIRA_API_TOKEN")
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Jira search response: %w", err)
	}
	return &result, nil
}

func (c *cloudClient) UpdateEpicDates(key string, start, end *time.Time) error {
	payload, err := dateFieldsPayload(start, end)
	if err != nil {
		return err
	}
	if payload == nil {
		return nil
	}

	updateURL := fmt.Sprintf("%s/rest/api/3/issue/%s", c.cfg.BaseURL, key)
	req, err := http.NewRequest(http.MethodPut, updateURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authenticateRequest(req)

	log.Debug().Str("epic", key).RawJSON("fields", payload).Msg("Updating epic dates")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError(resp, "update "+key, "JIRA_EMAIL and JIRA_API_TOKEN")
	}
	return nil
}

// authenticateRequest applies Jira Cloud basic auth: account email plus API
// token.
func (c *cloudClient) authenticateRequest(req *http.Request) {
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")
}

// dateFieldsPayload builds the issue-edit body for the start and end date
// custom fields. Nil dates are omitted; two nils return a nil payload.
func dateFieldsPayload(start, end *time.Time) ([]byte, error) {
	fields := map[string]any{}
	if start != nil {
		fields[StartDateField] = start.Format("2006-01-02")
	}
	if end != nil {
		fields[EndDateField] = end.Format("2006-01-02")
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return json.Marshal(map[string]any{"fields": fields})
}

// statusError translates a non-success response into an actionable error.
// credentials names the env vars to check on an auth failure, which differ
// between the Cloud and Data Center backends.
func statusError(resp *http.Response, op, credentials string) error {
	switch resp.StatusCode {
	case http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("Jira rejected the %s request (400): %s", op, strings.TrimSpace(string(body)))
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("Jira authentication failed (401/403). Please check %s.", credentials)
	case http.StatusNotFound:
		return fmt.Errorf("Jira returned 404 for %s. Please check the project and issue keys.", op)
	case http.StatusTooManyRequests:
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			return fmt.Errorf("Jira rate limit exceeded (429). Retry after %s seconds.", retryAfter)
		}
		return fmt.Errorf("Jira rate limit exceeded (429).")
	default:
		return fmt.Errorf("Jira API returned status %d for %s. Please check Jira availability.", resp.StatusCode, op)
	}
}
