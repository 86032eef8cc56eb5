// Package report renders forecast results for terminals and files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"epicast/internal/calendar"
	"epicast/internal/simulation"
)

const dayFormat = "2006-01-02"

// Meta carries the run header shared by every output format.
type Meta struct {
	Cycle       string
	AsOf        time.Time
	Trials      int
	Seed        int64
	PoolSize    int
	Percentiles []float64
}

// Options tunes file rendering.
type Options struct {
	Mermaid  bool
	Calendar *calendar.Calendar
}

// WriteTable prints the forecast as an aligned text table.
func WriteTable(w io.Writer, meta Meta, results []simulation.Result) {
	fmt.Fprintf(w, "Cycle:       %s\n", cycleOrAll(meta.Cycle))
	fmt.Fprintf(w, "As of:       %s\n", meta.AsOf.Format(dayFormat))
	fmt.Fprintf(w, "Trials/epic: %s\n", humanize.Comma(int64(meta.Trials)))
	fmt.Fprintf(w, "Sample pool: %d completed epics\n\n", meta.PoolSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headerColumns(meta.Percentiles), "\t"))
	for _, r := range results {
		fmt.Fprintln(tw, strings.Join(rowValues(meta.Percentiles, r), "\t"))
	}
	tw.Flush()
}

// WriteJSON writes the forecast as a single JSON document.
func WriteJSON(w io.Writer, meta Meta, results []simulation.Result) error {
	doc := struct {
		GeneratedAt time.Time           `json:"generated_at"`
		Cycle       string              `json:"cycle,omitempty"`
		AsOf        string              `json:"as_of"`
		Trials      int                 `json:"trials"`
		Seed        int64               `json:"seed"`
		PoolSize    int                 `json:"pool_size"`
		Percentiles []float64           `json:"percentiles"`
		Results     []simulation.Result `json:"results"`
	}{
		GeneratedAt: time.Now().UTC(),
		Cycle:       meta.Cycle,
		AsOf:        meta.AsOf.Format(dayFormat),
		Trials:      meta.Trials,
		Seed:        meta.Seed,
		PoolSize:    meta.PoolSize,
		Percentiles: meta.Percentiles,
		Results:     results,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// WriteCSV writes one row per epic with the same columns as the table.
func WriteCSV(w io.Writer, meta Meta, results []simulation.Result) error {
	cw := csv.NewWriter(w)

	header := []string{"key", "summary", "status", "due_date"}
	for _, p := range meta.Percentiles {
		header = append(header, fmt.Sprintf("p%g_date", p*100))
	}
	header = append(header, "delay_vs_due", "delay_in_start", "remaining_work_days", "days_in_progress", "unavailable", "reason")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{r.Key, r.Summary, string(r.Status), csvDate(r.DueDate)}
		for _, p := range meta.Percentiles {
			row = append(row, csvEstimate(r.Estimate, p))
		}
		row = append(row,
			csvInt(r.DelayVsDue),
			csvInt(r.DelayInStart),
			csvInt(r.RemainingWorkDays),
			csvInt(r.DaysInProgress),
			strconv.FormatBool(r.Unavailable),
			r.Reason,
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMarkdown writes the forecast as a Markdown report, optionally with a
// Mermaid chart of the percentile spread.
func WriteMarkdown(w io.Writer, meta Meta, results []simulation.Result, opts Options) error {
	var sb strings.Builder
	sb.WriteString("# Completion Forecast\n\n")
	sb.WriteString(fmt.Sprintf("- **Cycle:** %s\n", cycleOrAll(meta.Cycle)))
	sb.WriteString(fmt.Sprintf("- **As of:** %s\n", meta.AsOf.Format(dayFormat)))
	sb.WriteString(fmt.Sprintf("- **Trials per epic:** %s\n", humanize.Comma(int64(meta.Trials))))
	sb.WriteString(fmt.Sprintf("- **Sample pool:** %d completed epics\n", meta.PoolSize))
	sb.WriteString(fmt.Sprintf("- **Seed:** %d\n\n", meta.Seed))

	columns := headerColumns(meta.Percentiles)
	sb.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, r := range results {
		values := rowValues(meta.Percentiles, r)
		for i, v := range values {
			values[i] = strings.ReplaceAll(v, "|", "\\|")
		}
		sb.WriteString("| " + strings.Join(values, " | ") + " |\n")
	}

	if opts.Mermaid && opts.Calendar != nil {
		if chart := GenerateForecastChart(results, meta, opts.Calendar); chart != "" {
			sb.WriteString("\n## Forecast Spread\n\n")
			sb.WriteString(chart)
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteFiles renders the JSON, CSV and Markdown reports into dir and
// returns the written paths.
func WriteFiles(dir string, meta Meta, results []simulation.Result, opts Options) ([]string, error) {
	renderers := []struct {
		ext    string
		render func(io.Writer) error
	}{
		{"json", func(w io.Writer) error { return WriteJSON(w, meta, results) }},
		{"csv", func(w io.Writer) error { return WriteCSV(w, meta, results) }},
		{"md", func(w io.Writer) error { return WriteMarkdown(w, meta, results, opts) }},
	}

	var paths []string
	for _, r := range renderers {
		path := filepath.Join(dir, Filename(meta.Cycle, meta.AsOf, r.ext))
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		if err := r.render(f); err != nil {
			f.Close()
			return paths, fmt.Errorf("render %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		log.Debug().Str("path", path).Msg("Report written")
	}
	return paths, nil
}

// Filename names a report artifact after its cycle and reference date.
func Filename(cycle string, asOf time.Time, ext string) string {
	c := cycleOrAll(cycle)
	c = strings.ReplaceAll(c, " ", "-")
	c = strings.ReplaceAll(c, "/", "-")
	return fmt.Sprintf("forecast_%s_%s.%s", c, asOf.Format(dayFormat), ext)
}

func headerColumns(percentiles []float64) []string {
	columns := []string{"KEY", "SUMMARY", "STATUS", "DUE"}
	for _, p := range percentiles {
		columns = append(columns, fmt.Sprintf("P%g", p*100))
	}
	return append(columns, "DELAY", "REMAINING", "NOTE")
}

func rowValues(percentiles []float64, r simulation.Result) []string {
	values := []string{r.Key, truncate(r.Summary, 40), string(r.Status), tableDate(r.DueDate)}
	for _, p := range percentiles {
		values = append(values, tableEstimate(r.Estimate, p))
	}

	delay := "-"
	switch {
	case r.DelayVsDue != nil:
		delay = fmt.Sprintf("%+d", *r.DelayVsDue)
	case r.DelayInStart != nil:
		delay = fmt.Sprintf("%+d", *r.DelayInStart)
	}
	remaining := "-"
	if r.RemainingWorkDays != nil {
		remaining = strconv.Itoa(*r.RemainingWorkDays)
	}
	return append(values, delay, remaining, r.Reason)
}

func cycleOrAll(cycle string) string {
	if cycle == "" {
		return "all"
	}
	return cycle
}

func tableDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dayFormat)
}

func tableEstimate(e *simulation.Estimate, p float64) string {
	if e == nil {
		return "-"
	}
	date, ok := e.Date(p)
	if !ok {
		return "-"
	}
	return date.Format(dayFormat)
}

func csvDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dayFormat)
}

func csvEstimate(e *simulation.Estimate, p float64) string {
	if e == nil {
		return ""
	}
	date, ok := e.Date(p)
	if !ok {
		return ""
	}
	return date.Format(dayFormat)
}

func csvInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
