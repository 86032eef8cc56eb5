package report

import (
	"fmt"
	"math"
	"strings"

	"epicast/internal/calendar"
	"epicast/internal/simulation"
)

// GenerateForecastChart creates a Mermaid xychart-beta of each epic's
// percentile completion dates, expressed as working-day offsets from the
// reference date.
func GenerateForecastChart(results []simulation.Result, meta Meta, cal *calendar.Calendar) string {
	var estimated []simulation.Result
	for _, r := range results {
		if r.Estimate != nil {
			estimated = append(estimated, r)
		}
	}
	if len(estimated) == 0 || len(meta.Percentiles) == 0 {
		return ""
	}

	// Limit to 20 items to avoid overwhelming the text chart context
	if len(estimated) > 20 {
		estimated = estimated[:20]
	}

	var labels []string
	for _, r := range estimated {
		labels = append(labels, fmt.Sprintf("\"%s\"", r.Key))
	}

	minY, maxY := 0, 1
	series := make([][]string, len(meta.Percentiles))
	for pi, p := range meta.Percentiles {
		for _, r := range estimated {
			offset := 0
			if date, ok := r.Estimate.Date(p); ok {
				offset = cal.SignedWorkingDays(meta.AsOf, date)
			}
			if offset > maxY {
				maxY = offset
			}
			if offset < minY {
				minY = offset
			}
			series[pi] = append(series[pi], fmt.Sprintf("%d", offset))
		}
	}

	upper := int(math.Ceil(float64(maxY) * 1.1))
	lower := minY
	if lower < 0 {
		lower = int(math.Floor(float64(minY) * 1.1))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Completion Confidence by Epic\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Working Days From %s\" %d --> %d\n", meta.AsOf.Format(dayFormat), lower, upper))

	// Widest percentile first so each narrower bar stays visible on top.
	for pi := len(series) - 1; pi >= 0; pi-- {
		sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(series[pi], ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}
