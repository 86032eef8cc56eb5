// Package catalog loads the delivery plan file that supplements tracker
// data with planned dates, team holidays, staffing and effort estimates.
package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"epicast/internal/epic"
)

const dateLayout = "2006-01-02"

// Entry holds the planned attributes of one epic, keyed by issue key in
// the plan file.
type Entry struct {
	PlannedStart  *time.Time
	PlannedEnd    *time.Time
	Due           *time.Time
	DevsPlanned   int
	DevsUsed      int
	BestEstimate  *float64
	WorstEstimate *float64
}

// Catalog is the parsed plan file.
type Catalog struct {
	Holidays []time.Time
	Epics    map[string]Entry
}

type rawPlan struct {
	Holidays []string            `yaml:"holidays"`
	Epics    map[string]rawEntry `yaml:"epics"`
}

type rawEntry struct {
	PlannedStart  string   `yaml:"planned_start"`
	PlannedEnd    string   `yaml:"planned_end"`
	Due           string   `yaml:"due"`
	DevsPlanned   int      `yaml:"devs_planned"`
	DevsUsed      int      `yaml:"devs_used"`
	BestEstimate  *float64 `yaml:"best_estimate"`
	WorstEstimate *float64 `yaml:"worst_estimate"`
}

// Load reads and parses the plan file at path. All dates use the
// 2006-01-02 layout.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var raw rawPlan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse plan yaml: %w", err)
	}

	cat := &Catalog{Epics: make(map[string]Entry, len(raw.Epics))}
	for _, h := range raw.Holidays {
		day, err := time.Parse(dateLayout, h)
		if err != nil {
			return nil, fmt.Errorf("plan holiday %q: %w", h, err)
		}
		cat.Holidays = append(cat.Holidays, day)
	}

	for key, re := range raw.Epics {
		entry := Entry{
			DevsPlanned:   re.DevsPlanned,
			DevsUsed:      re.DevsUsed,
			BestEstimate:  re.BestEstimate,
			WorstEstimate: re.WorstEstimate,
		}
		if entry.PlannedStart, err = parseDate(key, "planned_start", re.PlannedStart); err != nil {
			return nil, err
		}
		if entry.PlannedEnd, err = parseDate(key, "planned_end", re.PlannedEnd); err != nil {
			return nil, err
		}
		if entry.Due, err = parseDate(key, "due", re.Due); err != nil {
			return nil, err
		}
		cat.Epics[key] = entry
	}

	log.Debug().
		Str("path", path).
		Int("epics", len(cat.Epics)).
		Int("holidays", len(cat.Holidays)).
		Msg("Plan file loaded")
	return cat, nil
}

func parseDate(key, field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("plan epic %s: invalid %s %q: %w", key, field, value, err)
	}
	return &day, nil
}

// Apply fills planned attributes the tracker left empty. Values already
// present on an epic are never overwritten, so tracker data wins.
func (c *Catalog) Apply(epics []epic.Epic) []epic.Epic {
	if c == nil || len(c.Epics) == 0 {
		return epics
	}

	matched := 0
	for i := range epics {
		entry, ok := c.Epics[epics[i].Key]
		if !ok {
			continue
		}
		matched++

		e := &epics[i]
		if e.PlannedStartDate == nil {
			e.PlannedStartDate = entry.PlannedStart
		}
		if e.PlannedEndDate == nil {
			e.PlannedEndDate = entry.PlannedEnd
		}
		if e.DueDate == nil {
			e.DueDate = entry.Due
		}
		if e.DevsPlanned == 0 {
			e.DevsPlanned = entry.DevsPlanned
		}
		if e.DevsUsed == 0 {
			e.DevsUsed = entry.DevsUsed
		}
		if e.BestEstimate == nil {
			e.BestEstimate = entry.BestEstimate
		}
		if e.WorstEstimate == nil {
			e.WorstEstimate = entry.WorstEstimate
		}
	}

	log.Debug().Int("matched", matched).Msg("Plan entries applied")
	return epics
}
