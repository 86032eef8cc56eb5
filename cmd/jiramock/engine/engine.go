// Package engine generates synthetic epic populations for the mock Jira
// server. Scenarios shape the cycle-time distribution: mild is a stable
// team, chaos has fat tails, drift degrades over time.
package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"epicast/internal/jira"
)

const jiraTime = "2006-01-02T15:04:05.000-0700"

type Config struct {
	Scenario     string // "mild", "chaos", or "drift"
	Distribution string // "uniform" or "weibull"
	Project      string
	Count        int
	Seed         int64
	Now          time.Time
}

var themes = []string{
	"Checkout rework", "Search relevance", "Billing migration",
	"Mobile onboarding", "Notification service", "Data export pipeline",
	"Permissions overhaul", "Reporting dashboard",
}

var assignees = []string{"Mara Voss", "Jonas Leclerc", "Priya Natarajan", "Tomas Herrera"}

// Generate builds Count epics, one arrival per day with the newest arriving
// at Now. Epics older than their sampled cycle time are done; the rest are
// in flight at a stage set by lifecycle progress.
func Generate(cfg Config) []jira.IssueDTO {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	if cfg.Project == "" {
		cfg.Project = "EP"
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	issues := make([]jira.IssueDTO, 0, cfg.Count)
	tArrival := cfg.Now.AddDate(0, 0, -cfg.Count)

	for i := 0; i < cfg.Count; i++ {
		arrival := tArrival.Add(time.Duration(i*24) * time.Hour)

		k, lambda := 2.5, 32.0 // stable team, roughly four-week epics
		switch cfg.Scenario {
		case "chaos":
			k = 0.8
			if cfg.Distribution == "weibull" {
				lambda = 40.0
			}
		case "drift":
			ratio := float64(i) / float64(cfg.Count)
			k = 2.5 - (1.7 * ratio)
			lambda = 32.0 + (8.0 * ratio)
		}

		var totalDays float64
		if cfg.Distribution == "weibull" {
			totalDays = weibullSample(rng, k, lambda)
		} else {
			totalDays = 20.0 + rng.Float64()*25.0
			if cfg.Scenario == "chaos" && rng.Float64() < 0.2 {
				totalDays += 30 + rng.Float64()*45 // controlled black swans
			}
			if cfg.Scenario == "drift" && i > cfg.Count/2 {
				totalDays *= 2.0
			}
		}

		issues = append(issues, buildEpic(cfg, rng, i, arrival, totalDays))
	}
	return issues
}

func buildEpic(cfg Config, rng *rand.Rand, i int, arrival time.Time, totalDays float64) jira.IssueDTO {
	var issue jira.IssueDTO
	issue.Key = fmt.Sprintf("%s-%d", cfg.Project, i+1)
	issue.Fields.Summary = fmt.Sprintf("%s phase %d", themes[i%len(themes)], i/len(themes)+1)
	issue.Fields.Assignee = &struct {
		DisplayName string `json:"displayName"`
	}{DisplayName: assignees[i%len(assignees)]}

	tRefine := arrival.Add(days(totalDays * 0.15))
	tStart := arrival.Add(days(totalDays * 0.40))
	tDone := arrival.Add(days(totalDays))

	ageDays := cfg.Now.Sub(arrival).Hours() / 24.0
	status := "Done"
	if ageDays <= totalDays {
		progress := ageDays / totalDays
		switch {
		case progress < 0.15:
			status = "Open"
		case progress < 0.40:
			status = "Refinement"
		default:
			status = "In Progress"
		}
	}
	issue.Fields.Status.Name = status
	issue.Fields.Status.StatusCategory.Key = categoryOf(status)

	// The changelog mirrors the lifecycle, truncated at now.
	changelog := &jira.ChangelogDTO{}
	if tRefine.Before(cfg.Now) {
		changelog.Histories = append(changelog.Histories, statusChange(tRefine, "Open", "Refinement"))
	}
	if tStart.Before(cfg.Now) && status != "Refinement" {
		changelog.Histories = append(changelog.Histories, statusChange(tStart, "Refinement", "In Progress"))
	}
	if tDone.Before(cfg.Now) {
		changelog.Histories = append(changelog.Histories, statusChange(tDone, "In Progress", "Done"))
	}
	if len(changelog.Histories) > 0 {
		issue.Changelog = changelog
	}

	// Most epics carry a due date set when the work was planned.
	if rng.Float64() < 0.75 {
		due := arrival.Add(days(totalDays * (0.9 + 0.4*rng.Float64())))
		issue.Fields.DueDate = due.Format("2006-01-02")
	}

	issue.Fields.FixVersions = []struct {
		Name string `json:"name"`
	}{{Name: cycleOf(tDone)}}

	if status == "Done" {
		issue.Fields.ResolutionDate = tDone.Format(jiraTime)
		// A slice of delivered epics never had their date fields
		// backfilled, which gives update-dates something to do.
		miss := rng.Float64()
		if miss >= 0.30 {
			issue.Fields.StartDate = tStart.Format("2006-01-02")
			issue.Fields.EndDate = tDone.Format("2006-01-02")
		} else if miss >= 0.15 {
			issue.Fields.StartDate = tStart.Format("2006-01-02")
		}
	} else if status == "In Progress" {
		issue.Fields.StartDate = tStart.Format("2006-01-02")
	}

	return issue
}

func statusChange(at time.Time, from, to string) jira.HistoryDTO {
	return jira.HistoryDTO{
		Created: at.Format(jiraTime),
		Items: []jira.ItemDTO{{
			Field:      "status",
			FromString: from,
			ToString:   to,
		}},
	}
}

func categoryOf(status string) string {
	switch status {
	case "Open":
		return "new"
	case "Done":
		return "done"
	default:
		return "indeterminate"
	}
}

// cycleOf names the quarterly planning cycle a date lands in.
func cycleOf(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

func days(d float64) time.Duration {
	return time.Duration(d * 24 * float64(time.Hour))
}

func weibullSample(rng *rand.Rand, k, lambda float64) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.0001
	}
	// X = lambda * (-ln(1-u))^(1/k)
	return lambda * math.Pow(-math.Log(1.0-u), 1.0/k)
}
