package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"epicast/internal/jira"
)

var updateDryRun bool

func init() {
	updateCmd := &cobra.Command{
		Use:   "update-dates",
		Short: "Backfill missing start/end dates on completed epics",
		Long: `Finds completed epics whose start or end date fields are empty and fills
them from the status transitions recorded in the issue changelog.`,
		RunE: runUpdateDates,
	}
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "report what would change without writing to Jira")
	rootCmd.AddCommand(updateCmd)
}

func runUpdateDates(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateJira(); err != nil {
		return err
	}

	issues, err := jiraClient.SearchEpics(cfg.Jira.MissingDatesJQL(), true)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("No completed epics with missing dates.")
		return nil
	}

	updated, skipped := 0, 0
	for _, issue := range issues {
		start, end := jira.InferDatesFromChangelog(issue.Changelog, cfg.Jira.StartStatus, cfg.Jira.DoneStatus)
		// Only fill fields that are actually empty.
		if issue.Fields.StartDate != "" {
			start = nil
		}
		if issue.Fields.EndDate != "" {
			end = nil
		}
		if start == nil && end == nil {
			log.Warn().Str("epic", issue.Key).Msg("No usable status transitions in changelog")
			skipped++
			continue
		}

		fmt.Printf("%s: start %s, end %s\n", issue.Key, dateOrDash(start), dateOrDash(end))
		if updateDryRun {
			updated++
			continue
		}
		if err := jiraClient.UpdateEpicDates(issue.Key, start, end); err != nil {
			return fmt.Errorf("updating %s: %w", issue.Key, err)
		}
		updated++
	}

	if updateDryRun {
		fmt.Printf("%d epic(s) would be updated, %d skipped (dry run)\n", updated, skipped)
	} else {
		fmt.Printf("%d epic(s) updated, %d skipped\n", updated, skipped)
	}
	return nil
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}
