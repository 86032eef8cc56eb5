package commands

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"epicast/internal/calendar"
	"epicast/internal/report"
	"epicast/internal/simulation"
	"epicast/internal/store"
)

var (
	historyLimit   int
	historyCycle   string
	historyResults bool
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List stored forecast runs",
		RunE:  runHistory,
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to list")
	historyCmd.Flags().StringVar(&historyCycle, "cycle", "", "filter by cycle")
	historyCmd.Flags().BoolVar(&historyResults, "results", false, "show the last run's per-epic results")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	if historyResults {
		run, results, err := db.LastRun(ctx, historyCycle)
		if errors.Is(err, store.ErrNoRuns) {
			fmt.Println("No stored runs.")
			return nil
		}
		if err != nil {
			return err
		}
		meta := report.Meta{
			Cycle:       run.Cycle,
			AsOf:        calendar.DateOf(run.CreatedAt),
			Trials:      run.Trials,
			Seed:        run.Seed,
			PoolSize:    run.PoolSize,
			Percentiles: percentilesOf(results),
		}
		report.WriteTable(os.Stdout, meta, results)
		return nil
	}

	runs, err := db.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tCYCLE\tTRIALS\tPOOL\tEPICS\tSEED")
	for _, r := range runs {
		cycle := r.Cycle
		if cycle == "" {
			cycle = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			shortID(r.ID), humanize.Time(r.CreatedAt), cycle,
			humanize.Comma(int64(r.Trials)), r.PoolSize, r.Epics, r.Seed)
	}
	w.Flush()
	return nil
}

// percentilesOf recovers the confidence levels of a stored run from its
// estimates; run metadata does not carry them.
func percentilesOf(results []simulation.Result) []float64 {
	for _, r := range results {
		if r.Estimate != nil && len(r.Estimate.Points) > 0 {
			ps := make([]float64, 0, len(r.Estimate.Points))
			for _, pt := range r.Estimate.Points {
				ps = append(ps, pt.Percentile)
			}
			return ps
		}
	}
	return simulation.DefaultPercentiles
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
