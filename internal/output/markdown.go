package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/store"
)

// MarkdownFormatter renders data as Markdown pipe tables.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) FormatResults(results []*core.Result) (string, error) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		rows = append(rows, []string{
			r.Provenance.API,
			resultOutcome(r),
			statusCell(r.StatusCode),
			fmt.Sprintf("%d", r.Attempts),
			r.Latency.Round(time.Millisecond).String(),
			resultDetail(r),
		})
	}
	return pipeTable([]string{"API", "Outcome", "Status", "Attempts", "Latency", "Detail"}, rows), nil
}

func (f *MarkdownFormatter) FormatRegistrations(regs []core.Registration) (string, error) {
	rows := make([][]string, 0, len(regs))
	for _, reg := range regs {
		rows = append(rows, []string{
			reg.Name,
			fmt.Sprintf("%g", reg.CallsPerSecond),
			fmt.Sprintf("%d", reg.MaxConcurrent),
		})
	}
	return pipeTable([]string{"API", "Calls/Sec", "Max Concurrent"}, rows), nil
}

func (f *MarkdownFormatter) FormatCacheEntries(entries []core.CacheEntry) (string, error) {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.API,
			truncate(entry.Target, 40),
			fmt.Sprintf("%d", entry.StatusCode),
			entry.StoredAt.Format(time.RFC3339),
			entry.ExpiresAt.Format(time.RFC3339),
		})
	}
	return pipeTable([]string{"API", "Target", "Status", "Stored", "Expires"}, rows), nil
}

func (f *MarkdownFormatter) FormatLimiterStates(entries []store.LimiterEntry) (string, error) {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		lastCall := "never"
		if entry.State.LastCallAt != nil {
			lastCall = entry.State.LastCallAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			entry.API,
			fmt.Sprintf("%d", entry.State.ConsecutiveErrors),
			fmt.Sprintf("%d", entry.State.SuccessStreak),
			lastCall,
		})
	}
	return pipeTable([]string{"API", "Consecutive Errors", "Success Streak", "Last Call"}, rows), nil
}

func (f *MarkdownFormatter) FormatStats(report StatsReport) (string, error) {
	rows := [][]string{
		{"Total Calls", fmt.Sprintf("%d", report.Monitor.TotalCalls)},
		{"Failed Calls", fmt.Sprintf("%d", report.Monitor.FailCount)},
		{"Success Rate", fmt.Sprintf("%.1f%%", report.Monitor.SuccessRate*100)},
		{"Average Latency", report.Monitor.AverageLatency.Round(time.Millisecond).String()},
		{"Uptime", report.Monitor.Uptime.Round(time.Second).String()},
		{"Cache Size", fmt.Sprintf("%d/%d", report.Cache.Size, report.Cache.MaxSize)},
		{"Cache Hit Rate", fmt.Sprintf("%.1f%%", report.Cache.HitRate*100)},
	}
	return pipeTable([]string{"Metric", "Value"}, rows), nil
}

func pipeTable(header []string, rows [][]string) string {
	var b strings.Builder

	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	separators := make([]string, len(header))
	for i := range separators {
		separators[i] = "---"
	}
	b.WriteString("| " + strings.Join(separators, " | ") + " |\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.ReplaceAll(cell, "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
