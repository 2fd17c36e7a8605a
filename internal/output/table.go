package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/store"
)

// TableFormatter renders data as ASCII tables.
type TableFormatter struct{}

func (f *TableFormatter) FormatResults(results []*core.Result) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"API", "Outcome", "Status", "Attempts", "Latency", "Detail"})

	var succeeded int
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Success {
			succeeded++
		}
		t.AppendRow(table.Row{
			r.Provenance.API,
			resultOutcome(r),
			statusCell(r.StatusCode),
			r.Attempts,
			r.Latency.Round(time.Millisecond),
			resultDetail(r),
		})
	}

	if len(results) > 1 {
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d ok", succeeded, len(results)), "", "", "", ""})
	}

	return t.Render(), nil
}

func (f *TableFormatter) FormatRegistrations(regs []core.Registration) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"API", "Calls/Sec", "Max Concurrent"})
	for _, reg := range regs {
		t.AppendRow(table.Row{reg.Name, fmt.Sprintf("%g", reg.CallsPerSecond), reg.MaxConcurrent})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatCacheEntries(entries []core.CacheEntry) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"API", "Target", "Status", "Stored", "Expires", "Fingerprint"})
	for _, entry := range entries {
		t.AppendRow(table.Row{
			entry.API,
			truncate(entry.Target, 40),
			entry.StatusCode,
			entry.StoredAt.Format(time.RFC3339),
			entry.ExpiresAt.Format(time.RFC3339),
			truncate(entry.Fingerprint, 12),
		})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatLimiterStates(entries []store.LimiterEntry) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"API", "Consecutive Errors", "Success Streak", "Last Call"})
	for _, entry := range entries {
		lastCall := "never"
		if entry.State.LastCallAt != nil {
			lastCall = entry.State.LastCallAt.Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			entry.API,
			entry.State.ConsecutiveErrors,
			entry.State.SuccessStreak,
			lastCall,
		})
	}
	return t.Render(), nil
}

func (f *TableFormatter) FormatStats(report StatsReport) (string, error) {
	t := newTable()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Total Calls", report.Monitor.TotalCalls},
		{"Failed Calls", report.Monitor.FailCount},
		{"Success Rate", fmt.Sprintf("%.1f%%", report.Monitor.SuccessRate*100)},
		{"Average Latency", report.Monitor.AverageLatency.Round(time.Millisecond)},
		{"Uptime", report.Monitor.Uptime.Round(time.Second)},
		{"Cache Size", fmt.Sprintf("%d/%d", report.Cache.Size, report.Cache.MaxSize)},
		{"Cache Hits", report.Cache.Hits},
		{"Cache Misses", report.Cache.Misses},
		{"Cache Hit Rate", fmt.Sprintf("%.1f%%", report.Cache.HitRate*100)},
	})
	return t.Render(), nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func statusCell(code int) string {
	if code == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", code)
}
