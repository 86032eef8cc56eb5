package simulation

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"epicast/internal/calendar"
	"epicast/internal/epic"
)

// BacktestConfig tunes one walk-forward validation run.
type BacktestConfig struct {
	Trials      int
	Percentiles []float64
	Seed        int64
	Seeded      bool // false = seed from the wall clock
	MinSamples  int  // smallest training pool accepted per checkpoint
}

func (c BacktestConfig) withDefaults() BacktestConfig {
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
	if c.MinSamples < 1 {
		c.MinSamples = DefaultMinSamples
	}
	return c
}

// Checkpoint is one completed epic re-forecast from its actual start date
// using only the durations of epics that had finished by then. Covered runs
// parallel to Estimate.Points: true when the actual end landed on or before
// that percentile's predicted date.
type Checkpoint struct {
	Key        string    `json:"key"`
	Start      time.Time `json:"start"`
	ActualEnd  time.Time `json:"actual_end"`
	ActualDays int       `json:"actual_days"`
	PoolSize   int       `json:"pool_size"`
	Estimate   *Estimate `json:"estimate"`
	Covered    []bool    `json:"covered"`
}

// Coverage aggregates one percentile across all checkpoints. A calibrated
// model covers roughly its percentile: P85 should contain about 85% of
// actual outcomes.
type Coverage struct {
	Percentile float64 `json:"percentile"`
	Hits       int     `json:"hits"`
	Rate       float64 `json:"rate"`
}

// BacktestResult holds the chronological checkpoints and their aggregate
// coverage. Skipped counts completed epics whose start predates enough
// history to train on.
type BacktestResult struct {
	Checkpoints []Checkpoint `json:"checkpoints"`
	Skipped     int          `json:"skipped"`
	Coverage    []Coverage   `json:"coverage"`
	Message     string       `json:"message"`
}

type backtestSample struct {
	key        string
	start, end time.Time
	days       int
}

// Backtest replays history: each completed epic is re-forecast from its own
// start against a pool built solely from epics finished before that start,
// then scored against its actual end. Checkpoints come back in completion
// order, so drifting coverage over time is visible directly.
func Backtest(epics []epic.Epic, cal *calendar.Calendar, cfg BacktestConfig) (*BacktestResult, error) {
	cfg = cfg.withDefaults()

	samples := completedSamples(epics, cal)
	sort.Slice(samples, func(i, j int) bool { return samples[i].end.Before(samples[j].end) })

	baseSeed := cfg.Seed
	if !cfg.Seeded {
		baseSeed = time.Now().UnixNano()
	}

	result := &BacktestResult{}

	type backtestCase struct {
		backtestSample
		training []int
	}
	var cases []backtestCase
	for _, cand := range samples {
		var training []int
		for _, prior := range samples {
			if prior.end.Before(cand.start) {
				training = append(training, prior.days)
			}
		}
		if len(training) < cfg.MinSamples {
			result.Skipped++
			continue
		}
		cases = append(cases, backtestCase{backtestSample: cand, training: training})
	}

	log.Debug().Int("checkpoints", len(cases)).Int("skipped", result.Skipped).
		Msg("starting walk-forward validation")

	result.Checkpoints = make([]Checkpoint, len(cases))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, c := range cases {
		i, c := i, c // pre-1.22 loop variable capture
		g.Go(func() error {
			engine := NewEngine(&Pool{Durations: c.training}, cal)
			engine.SetSeed(epicSeed(baseSeed, c.key))
			est := engine.Estimate(c.key, c.start, cfg.Trials, cfg.Percentiles)

			covered := make([]bool, len(est.Points))
			for j, pt := range est.Points {
				covered[j] = !c.end.After(pt.Date)
			}
			result.Checkpoints[i] = Checkpoint{
				Key:        c.key,
				Start:      c.start,
				ActualEnd:  c.end,
				ActualDays: c.days,
				PoolSize:   len(c.training),
				Estimate:   est,
				Covered:    covered,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Coverage = coverageOf(result.Checkpoints, cfg.Percentiles)
	result.Message = backtestMessage(result)
	return result, nil
}

// completedSamples extracts the replayable epics: done, dated, and not
// reversed. Unusable ones are logged and dropped, never fatal.
func completedSamples(epics []epic.Epic, cal *calendar.Calendar) []backtestSample {
	var out []backtestSample
	for _, e := range epics {
		if e.Category != epic.CategoryDone || e.StartDate == nil || e.EndDate == nil {
			continue
		}
		days, err := cal.WorkingDaysInclusive(*e.StartDate, *e.EndDate)
		if err != nil {
			log.Warn().Str("epic", e.Key).Msg("skipping completed epic with reversed dates")
			continue
		}
		out = append(out, backtestSample{key: e.Key, start: *e.StartDate, end: *e.EndDate, days: days})
	}
	return out
}

func coverageOf(checkpoints []Checkpoint, percentiles []float64) []Coverage {
	coverage := make([]Coverage, len(percentiles))
	for j, p := range percentiles {
		coverage[j].Percentile = p
	}
	if len(checkpoints) == 0 {
		return coverage
	}
	for _, cp := range checkpoints {
		for j, hit := range cp.Covered {
			if hit {
				coverage[j].Hits++
			}
		}
	}
	for j := range coverage {
		coverage[j].Rate = float64(coverage[j].Hits) / float64(len(checkpoints))
	}
	return coverage
}

func backtestMessage(r *BacktestResult) string {
	if len(r.Checkpoints) == 0 {
		return "No epic had enough prior completions to validate against."
	}
	msg := fmt.Sprintf("Re-forecast %d completed epics from their own start dates.", len(r.Checkpoints))
	for _, cov := range r.Coverage {
		if len(r.Checkpoints) > 3 && cov.Rate+0.15 < cov.Percentile {
			msg += fmt.Sprintf(" Warning: actual completions landed within the P%.0f estimate only %.0f%% of the time; the model runs optimistic on this history.",
				cov.Percentile*100, cov.Rate*100)
			break
		}
	}
	return msg
}
