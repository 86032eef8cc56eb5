// Package simulation forecasts epic completion dates by Monte Carlo
// sampling over historical cycle times, and derives per-epic schedule
// status from the planned and actual dates.
package simulation

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"epicast/internal/calendar"
)

// Engine runs Monte Carlo completion-date trials against a shared duration
// pool. One engine serves one random stream; the batch runner builds an
// independently seeded engine per epic.
type Engine struct {
	pool *Pool
	cal  *calendar.Calendar
	rng  *rand.Rand
}

// EstimatePoint is one percentile of a simulated completion distribution.
type EstimatePoint struct {
	Percentile float64   `json:"percentile"`
	Date       time.Time `json:"date"`
}

// Estimate is the reduction of one epic's simulated outcomes to percentile
// completion dates. Points follow the requested percentile order.
type Estimate struct {
	Key    string          `json:"key"`
	Points []EstimatePoint `json:"points"`
	Trials int             `json:"trials"`
}

// Date returns the completion date estimated for percentile p.
func (e *Estimate) Date(p float64) (time.Time, bool) {
	for _, pt := range e.Points {
		if pt.Percentile == p {
			return pt.Date, true
		}
	}
	return time.Time{}, false
}

// NewEngine seeds from the wall clock; use SetSeed for reproducible runs.
func NewEngine(pool *Pool, cal *calendar.Calendar) *Engine {
	return &Engine{
		pool: pool,
		cal:  cal,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetSeed re-seeds the engine. Equal seeds over equal pools and inputs
// reproduce estimates byte for byte.
func (e *Engine) SetSeed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// Estimate simulates trials completion dates from start and reduces them to
// the requested percentiles. Each trial draws one duration uniformly with
// replacement and advances start by that many working days. A single-valued
// pool collapses every percentile to the same date; that is a property of
// the data, not an error.
func (e *Engine) Estimate(key string, start time.Time, trials int, percentiles []float64) *Estimate {
	outcomes := make([]time.Time, trials)
	for i := 0; i < trials; i++ {
		d := e.pool.Durations[e.rng.Intn(len(e.pool.Durations))]
		outcomes[i] = e.cal.AddWorkingDays(start, d)
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Before(outcomes[j]) })

	return reduceOutcomes(key, outcomes, percentiles)
}

// reduceOutcomes selects, for each percentile p, the sorted outcome at
// index ceil(p*n)-1 clamped to [0, n-1].
func reduceOutcomes(key string, sorted []time.Time, percentiles []float64) *Estimate {
	n := len(sorted)
	est := &Estimate{
		Key:    key,
		Trials: n,
		Points: make([]EstimatePoint, 0, len(percentiles)),
	}
	for _, p := range percentiles {
		idx := int(math.Ceil(p*float64(n))) - 1
		if idx < 0 {
			idx = 0
		}
		if idx > n-1 {
			idx = n - 1
		}
		est.Points = append(est.Points, EstimatePoint{Percentile: p, Date: sorted[idx]})
	}
	return est
}
