// Package report renders run outcomes as a terminal summary, an HTML report
// and an embedded CSV export.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/llehouerou/mbrate/internal/pipeline"
)

// Summary renders a per-status count table for the terminal.
func Summary(results []*pipeline.Result) string {
	counts := make(map[pipeline.Status]int)
	for _, res := range results {
		counts[res.Status]++
	}

	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Status", "Files"})
	for _, status := range statuses {
		tw.AppendRow(table.Row{status, counts[pipeline.Status(status)]})
	}
	tw.AppendFooter(table.Row{"total", len(results)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// fmtDuration renders milliseconds as M:SS, or H:MM:SS past the hour.
func fmtDuration(ms int) string {
	if ms <= 0 {
		return ""
	}
	secs := (ms + 500) / 1000
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func fmtRating(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}

func fmtVotes(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func fmtBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinKeys(keys []string) string {
	return strings.Join(keys, "; ")
}
