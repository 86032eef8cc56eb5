package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"epicast/internal/calendar"
	"epicast/internal/catalog"
	"epicast/internal/jira"
	"epicast/internal/simulation"
)

var (
	backtestTrials       int
	backtestSeed         int64
	backtestPercentiles  []float64
	backtestLookbackDays int
	backtestMinSamples   int
	backtestPlan         string
	backtestJSON         bool
)

func init() {
	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Validate forecast calibration against completed epics",
		Long: `Re-forecasts every completed epic from its own start date using only the
durations known at that point, then scores the percentile estimates against
the actual completion. A calibrated model covers roughly its percentile:
P85 should contain about 85% of actual outcomes.`,
		RunE: runBacktest,
	}
	backtestCmd.Flags().IntVar(&backtestTrials, "trials", 0, "Monte Carlo trials per checkpoint (0 = configured default)")
	backtestCmd.Flags().Int64Var(&backtestSeed, "seed", 0, "random seed for reproducible runs")
	backtestCmd.Flags().Float64SliceVar(&backtestPercentiles, "percentiles", nil, "confidence levels to score, e.g. 0.5,0.85,0.95")
	backtestCmd.Flags().IntVar(&backtestLookbackDays, "lookback-days", 0, "history window to replay (0 = configured default)")
	backtestCmd.Flags().IntVar(&backtestMinSamples, "min-samples", 0, "minimum prior completions per checkpoint (0 = configured default)")
	backtestCmd.Flags().StringVar(&backtestPlan, "plan", "", "plan file path for holidays (default PLAN_FILE)")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateJira(); err != nil {
		return err
	}

	// 1. Resolve effective settings: flag, then environment, then defaults.
	lookback := backtestLookbackDays
	if lookback <= 0 {
		lookback = cfg.Forecast.LookbackDays
	}
	trials := backtestTrials
	if trials <= 0 {
		trials = cfg.Forecast.Trials
	}
	minSamples := backtestMinSamples
	if minSamples <= 0 {
		minSamples = cfg.Forecast.MinSamples
	}
	percentiles := backtestPercentiles
	if len(percentiles) == 0 {
		percentiles = cfg.Forecast.Percentiles
	}
	if len(percentiles) == 0 {
		percentiles = simulation.DefaultPercentiles
	}
	percentiles = append([]float64(nil), percentiles...)
	sort.Float64s(percentiles)

	seed := backtestSeed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	// 2. Holidays come from the plan file when one is configured.
	planPath := backtestPlan
	if planPath == "" {
		planPath = cfg.PlanFile
	}
	var holidays []time.Time
	if planPath != "" {
		plan, err := catalog.Load(planPath)
		if err != nil {
			return err
		}
		holidays = plan.Holidays
	}
	cal := calendar.New(holidays)

	// 3. Replay the completed epics against their own history.
	issues, err := jiraClient.SearchEpics(cfg.Jira.CompletedEpicsJQL(lookback), true)
	if err != nil {
		return err
	}
	epics := jira.MapEpics(issues, cfg.Jira)

	result, err := simulation.Backtest(epics, cal, simulation.BacktestConfig{
		Trials:      trials,
		Percentiles: percentiles,
		Seed:        seed,
		Seeded:      true,
		MinSamples:  minSamples,
	})
	if err != nil {
		return err
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printBacktest(result)
	return nil
}

func printBacktest(result *simulation.BacktestResult) {
	if len(result.Checkpoints) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSTART\tACTUAL\tDAYS\tPOOL\tWITHIN")
		for _, cp := range result.Checkpoints {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
				cp.Key,
				cp.Start.Format("2006-01-02"),
				cp.ActualEnd.Format("2006-01-02"),
				cp.ActualDays,
				cp.PoolSize,
				withinLabel(cp),
			)
		}
		w.Flush()
		fmt.Println()

		parts := make([]string, 0, len(result.Coverage))
		for _, cov := range result.Coverage {
			parts = append(parts, fmt.Sprintf("P%g %d/%d (%.0f%%)",
				cov.Percentile*100, cov.Hits, len(result.Checkpoints), cov.Rate*100))
		}
		fmt.Printf("Coverage: %s\n", strings.Join(parts, ", "))
	}
	if result.Skipped > 0 {
		fmt.Printf("Skipped %d epic(s) with too little prior history.\n", result.Skipped)
	}
	fmt.Println(result.Message)
}

// withinLabel names the lowest percentile whose estimate still covered the
// actual completion, or "-" when even the highest missed.
func withinLabel(cp simulation.Checkpoint) string {
	for j, hit := range cp.Covered {
		if hit {
			return fmt.Sprintf("P%g", cp.Estimate.Points[j].Percentile*100)
		}
	}
	return "-"
}
