package simulation

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"epicast/internal/calendar"
	"epicast/internal/epic"
)

// DefaultTrials is the number of Monte Carlo trials per epic.
const DefaultTrials = 10000

// DefaultPercentiles are the confidence levels reported per epic.
var DefaultPercentiles = []float64{0.50, 0.85, 0.95}

// MissingRequiredDateError reports an epic with no usable start reference.
// It isolates that epic: the batch continues and the epic's result carries
// the unavailable marker.
type MissingRequiredDateError struct {
	Key string
}

func (e *MissingRequiredDateError) Error() string {
	return fmt.Sprintf("epic %s has neither an actual nor a planned start date", e.Key)
}

// Config tunes one forecast run.
type Config struct {
	Trials      int
	Percentiles []float64
	Seed        int64
	Seeded      bool      // false = seed from the wall clock
	NearEnd     int       // working days, DefaultNearEndThreshold when 0
	Today       time.Time // zero = time.Now()
}

func (c Config) withDefaults() Config {
	if c.Trials <= 0 {
		c.Trials = DefaultTrials
	}
	if len(c.Percentiles) == 0 {
		c.Percentiles = DefaultPercentiles
	} else {
		ps := make([]float64, len(c.Percentiles))
		copy(ps, c.Percentiles)
		sort.Float64s(ps)
		c.Percentiles = ps
	}
	if c.NearEnd <= 0 {
		c.NearEnd = DefaultNearEndThreshold
	}
	if c.Today.IsZero() {
		c.Today = time.Now()
	}
	c.Today = calendar.DateOf(c.Today)
	return c
}

// Result is the forecast outcome for one epic. Estimate is nil for closed,
// archived, and unavailable epics; nil measurement fields mean the value is
// not applicable rather than zero.
type Result struct {
	Key               string        `json:"key"`
	Summary           string        `json:"summary,omitempty"`
	Status            DerivedStatus `json:"status"`
	DueDate           *time.Time    `json:"due_date,omitempty"`
	Estimate          *Estimate     `json:"estimate,omitempty"`
	DelayVsDue        *int          `json:"delay_vs_due,omitempty"`
	DelayInStart      *int          `json:"delay_in_start,omitempty"`
	RemainingWorkDays *int          `json:"remaining_work_days,omitempty"`
	DaysInProgress    *int          `json:"days_in_progress,omitempty"`
	Unavailable       bool          `json:"unavailable,omitempty"`
	Reason            string        `json:"reason,omitempty"`
}

// Run forecasts every epic against the pool and derives its schedule
// status. Epics are simulated concurrently, each on a random stream seeded
// from the run seed mixed with the epic key, so equal seeds reproduce equal
// output regardless of scheduling. Results come back ordered by epic key.
// An empty pool aborts the whole batch with InsufficientDataError; an epic
// without a start reference is isolated as an unavailable result.
func Run(pool *Pool, epics []epic.Epic, cfg Config, cal *calendar.Calendar) ([]Result, error) {
	if pool == nil || pool.Size() == 0 {
		return nil, &InsufficientDataError{Samples: 0, MinSamples: 1}
	}
	cfg = cfg.withDefaults()

	baseSeed := cfg.Seed
	if !cfg.Seeded {
		baseSeed = time.Now().UnixNano()
	}

	ordered := make([]epic.Epic, len(epics))
	copy(ordered, epics)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Key < ordered[j].Key })

	log.Debug().Int("epics", len(ordered)).Int("trials", cfg.Trials).
		Int("pool", pool.Size()).Bool("seeded", cfg.Seeded).
		Msg("starting forecast batch")

	results := make([]Result, len(ordered))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range ordered {
		i, e := i, e // pre-1.22 loop variable capture
		g.Go(func() error {
			res, err := forecastOne(pool, e, cfg, cal, baseSeed)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func forecastOne(pool *Pool, e epic.Epic, cfg Config, cal *calendar.Calendar, baseSeed int64) (Result, error) {
	// Reversed actual dates are upstream data corruption, not a property of
	// this epic's schedule. Surface them instead of classifying around them.
	if e.StartDate != nil && e.EndDate != nil {
		if _, err := cal.WorkingDaysInclusive(*e.StartDate, *e.EndDate); err != nil {
			return Result{}, fmt.Errorf("epic %s: %w", e.Key, err)
		}
	}

	derived := DeriveStatus(e, cfg.Today, cal, cfg.NearEnd)
	res := Result{
		Key:               e.Key,
		Summary:           e.Summary,
		Status:            derived.Status,
		DueDate:           dueReference(e),
		DelayVsDue:        derived.DelayVsDue,
		DelayInStart:      derived.DelayInStart,
		RemainingWorkDays: derived.RemainingWorkDays,
		DaysInProgress:    derived.DaysInProgress,
	}

	if e.Archived() || e.Closed() {
		return res, nil // nothing left to simulate
	}

	start := e.StartReference()
	if start == nil {
		reason := &MissingRequiredDateError{Key: e.Key}
		res.Unavailable = true
		res.Reason = reason.Error()
		log.Warn().Str("epic", e.Key).Msg("forecast unavailable: no start reference")
		return res, nil
	}

	engine := NewEngine(pool, cal)
	engine.SetSeed(epicSeed(baseSeed, e.Key))
	res.Estimate = engine.Estimate(e.Key, *start, cfg.Trials, cfg.Percentiles)
	return res, nil
}

// epicSeed mixes the run seed with the epic key so parallel workers sample
// independent, reproducible streams.
func epicSeed(base int64, key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return base ^ int64(h.Sum64())
}
