package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultRequestDelay spaces out Data Center requests. On-premise instances
// often sit behind proxies with much stricter rate policies than Cloud.
const defaultRequestDelay = 10 * time.Second

// dcClient talks to a Jira Data Center instance using a personal access
// token. The REST v2 API it exposes accepts the same search parameters and
// issue-edit payloads as Cloud v3 for everything this package sends.
type dcClient struct {
	cfg         Config
	httpClient  *http.Client
	lastRequest time.Time
}

func newDataCenterClient(cfg Config) *dcClient {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = defaultRequestDelay
	}
	return &dcClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

func (c *dcClient) SearchEpics(jql string, expandChangelog bool) ([]IssueDTO, error) {
	var all []IssueDTO
	startAt := 0

	log.Info().Msg("Requesting epics from Jira Data Center")
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

func (c *dcClient) searchPage(jql string, startAt int, expandChangelog bool) (*SearchResponse, error) {
	c.throttle()

	params := url.Values{}
	params.Set("jql", jql)
	params.Set("startAt", strconv.Itoa(startAt))
	params.Set("maxResults", strconv.Itoa(c.cfg.PageSize))
	params.Set("fields", searchFields)
	if expandChangelog {
		params.Set("expand", "changelog")
	}

	searchURL := fmt.Sprintf("%s/rest/api/2/search?%s", c.cfg.BaseURL, params.Encode())
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
		return nil, statusError(resp, "search", "JIRA_BEARER_TOKEN")
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode Jira search response: %w", err)
	}
	return &result, nil
}

func (c *dcClient) UpdateEpicDates(key string, start, end *time.Time) error {
	payload, err := dateFieldsPayload(start, end)
	if err != nil {
		return err
	}
	if payload == nil {
		return nil
	}

	c.throttle()

	updateURL := fmt.Sprintf("%s/rest/api/2/issue/%s", c.cfg.BaseURL, key)
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
		return statusError(resp, "update "+key, "JIRA_BEARER_TOKEN")
	}
	return nil
}

// throttle enforces the configured minimum spacing between requests.
func (c *dcClient) throttle() {
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling Jira request")
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

// authenticateRequest applies the personal access token as a bearer header.
func (c *dcClient) authenticateRequest(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	req.Header.Set("Accept", "application/json")
}
