package simulation

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"epicast/internal/calendar"
	"epicast/internal/epic"
)

// DefaultMinSamples is the smallest historical pool accepted by default.
// Below ten observations the empirical distribution is too coarse for the
// high percentiles to carry meaning.
const DefaultMinSamples = 10

// InsufficientDataError reports a historical pool too small to sample from.
type InsufficientDataError struct {
	Samples    int
	MinSamples int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient historical data: %d samples, need at least %d",
		e.Samples, e.MinSamples)
}

// Pool is the empirical distribution of historical cycle times in working
// days. It is read-only once built; concurrent samplers share it freely.
type Pool struct {
	Durations []int `json:"durations"`
	Excluded  int   `json:"excluded"` // records dropped for missing or reversed dates
}

// Size returns the number of usable samples.
func (p *Pool) Size() int { return len(p.Durations) }

// BuildPool derives one duration per completed epic: the working days
// between its actual start and end dates, inclusive of both. Epics that are
// not done, lack either date, or have a reversed range are excluded and
// counted, never fatal. Fails with InsufficientDataError when fewer than
// minSamples durations remain; minSamples < 1 falls back to
// DefaultMinSamples.
func BuildPool(epics []epic.Epic, cal *calendar.Calendar, minSamples int) (*Pool, error) {
	if minSamples < 1 {
		minSamples = DefaultMinSamples
	}

	pool := &Pool{Durations: make([]int, 0, len(epics))}
	for _, e := range epics {
		if e.Category != epic.CategoryDone || e.StartDate == nil || e.EndDate == nil {
			pool.Excluded++
			continue
		}
		days, err := cal.WorkingDaysInclusive(*e.StartDate, *e.EndDate)
		if err != nil {
			log.Warn().Str("epic", e.Key).
				Time("start", *e.StartDate).Time("end", *e.EndDate).
				Msg("excluding completed epic with reversed dates")
			pool.Excluded++
			continue
		}
		pool.Durations = append(pool.Durations, days)
	}

	if len(pool.Durations) < minSamples {
		return nil, &InsufficientDataError{Samples: len(pool.Durations), MinSamples: minSamples}
	}

	log.Debug().Int("samples", len(pool.Durations)).Int("excluded", pool.Excluded).
		Msg("historical duration pool built")
	return pool, nil
}
