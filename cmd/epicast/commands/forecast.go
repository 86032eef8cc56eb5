package commands

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"epicast/internal/calendar"
	"epicast/internal/catalog"
	"epicast/internal/jira"
	"epicast/internal/report"
	"epicast/internal/simulation"
	"epicast/internal/store"
)

var (
	forecastCycle        string
	forecastTrials       int
	forecastSeed         int64
	forecastPercentiles  []float64
	forecastLookbackDays int
	forecastAsOf         string
	forecastMinSamples   int
	forecastPlan         string
	forecastOpen         bool
	forecastNoSave       bool
)

func init() {
	forecastCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Simulate completion dates for open epics",
		RunE:  runForecast,
	}
	forecastCmd.Flags().StringVar(&forecastCycle, "cycle", "", "fix version to forecast (empty = all open epics)")
	forecastCmd.Flags().IntVar(&forecastTrials, "trials", 0, "Monte Carlo trials per epic (0 = configured default)")
	forecastCmd.Flags().Int64Var(&forecastSeed, "seed", 0, "random seed for reproducible runs")
	forecastCmd.Flags().Float64SliceVar(&forecastPercentiles, "percentiles", nil, "confidence levels to report, e.g. 0.5,0.85,0.95")
	forecastCmd.Flags().IntVar(&forecastLookbackDays, "lookback-days", 0, "history window for the sample pool (0 = configured default)")
	forecastCmd.Flags().StringVar(&forecastAsOf, "as-of", "", "reference date YYYY-MM-DD (default today)")
	forecastCmd.Flags().IntVar(&forecastMinSamples, "min-samples", 0, "minimum completed epics required (0 = configured default)")
	forecastCmd.Flags().StringVar(&forecastPlan, "plan", "", "plan file path (default PLAN_FILE)")
	forecastCmd.Flags().BoolVar(&forecastOpen, "open", false, "open the Markdown report when done")
	forecastCmd.Flags().BoolVar(&forecastNoSave, "no-save", false, "skip writing report files and run history")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateJira(); err != nil {
		return err
	}
	ctx := cmd.Context()

	// 1. Resolve effective settings: flag, then environment, then defaults.
	asOf := time.Now()
	if forecastAsOf != "" {
		parsed, err := time.Parse("2006-01-02", forecastAsOf)
		if err != nil {
			return fmt.Errorf("invalid --as-of date %q: %w", forecastAsOf, err)
		}
		asOf = parsed
	}
	asOf = calendar.DateOf(asOf)

	lookback := forecastLookbackDays
	if lookback <= 0 {
		lookback = cfg.Forecast.LookbackDays
	}
	trials := forecastTrials
	if trials <= 0 {
		trials = cfg.Forecast.Trials
	}
	minSamples := forecastMinSamples
	if minSamples <= 0 {
		minSamples = cfg.Forecast.MinSamples
	}
	percentiles := forecastPercentiles
	if len(percentiles) == 0 {
		percentiles = cfg.Forecast.Percentiles
	}
	if len(percentiles) == 0 {
		percentiles = simulation.DefaultPercentiles
	}
	percentiles = append([]float64(nil), percentiles...)
	sort.Float64s(percentiles)

	// The seed is resolved here rather than inside the simulation so the
	// stored run records the value that actually drove it.
	seed := forecastSeed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	// 2. Load the plan file for holidays and planned dates.
	planPath := forecastPlan
	if planPath == "" {
		planPath = cfg.PlanFile
	}
	var plan *catalog.Catalog
	if planPath != "" {
		var err error
		plan, err = catalog.Load(planPath)
		if err != nil {
			return err
		}
	}
	var holidays []time.Time
	if plan != nil {
		holidays = plan.Holidays
	}
	cal := calendar.New(holidays)

	// 3. Fetch completed epics for the sample pool and open epics to forecast.
	completed, err := jiraClient.SearchEpics(cfg.Jira.CompletedEpicsJQL(lookback), true)
	if err != nil {
		return err
	}
	open, err := jiraClient.SearchEpics(cfg.Jira.OpenEpicsJQL(forecastCycle), true)
	if err != nil {
		return err
	}

	doneEpics := jira.MapEpics(completed, cfg.Jira)
	openEpics := plan.Apply(jira.MapEpics(open, cfg.Jira))

	// 4. Build the duration pool and run the simulation.
	pool, err := simulation.BuildPool(doneEpics, cal, minSamples)
	if err != nil {
		return err
	}

	results, err := simulation.Run(pool, openEpics, simulation.Config{
		Trials:      trials,
		Percentiles: percentiles,
		Seed:        seed,
		Seeded:      true,
		NearEnd:     cfg.Forecast.NearEndDays,
		Today:       asOf,
	}, cal)
	if err != nil {
		return err
	}

	// 5. Render and persist.
	meta := report.Meta{
		Cycle:       forecastCycle,
		AsOf:        asOf,
		Trials:      trials,
		Seed:        seed,
		PoolSize:    pool.Size(),
		Percentiles: percentiles,
	}
	report.WriteTable(os.Stdout, meta, results)

	if forecastNoSave {
		if forecastOpen {
			log.Warn().Msg("--open ignored together with --no-save")
		}
		return nil
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.SaveRun(ctx, store.Run{
		Cycle:    forecastCycle,
		Trials:   trials,
		Seed:     seed,
		PoolSize: pool.Size(),
	}, results)
	if err != nil {
		return err
	}
	log.Debug().Str("run", run.ID).Msg("Run recorded")

	paths, err := report.WriteFiles(cfg.ReportDir, meta, results, report.Options{
		Mermaid:  cfg.EnableMermaidCharts,
		Calendar: cal,
	})
	if err != nil {
		return err
	}
	fmt.Println()
	for _, p := range paths {
		fmt.Printf("Saved %s\n", p)
	}

	if forecastOpen {
		md := paths[len(paths)-1]
		if err := browser.OpenFile(md); err != nil {
			log.Warn().Err(err).Str("path", md).Msg("Failed to open report")
		}
	}
	return nil
}
