// Package output renders gateway results and listings for the CLI.
package output

import (
	"fmt"
	"strings"

	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/cache"
	"github.com/gatepace/gatepace/internal/core/monitor"
	"github.com/gatepace/gatepace/internal/core/store"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// StatsReport bundles the monitor and cache snapshots shown by the stats
// command and the stats endpoint.
type StatsReport struct {
	Monitor monitor.Summary `json:"monitor"`
	Cache   cache.Stats     `json:"cache"`
}

// Formatter renders gateway data structures.
type Formatter interface {
	FormatResults(results []*core.Result) (string, error)
	FormatRegistrations(regs []core.Registration) (string, error)
	FormatCacheEntries(entries []core.CacheEntry) (string, error)
	FormatLimiterStates(entries []store.LimiterEntry) (string, error)
	FormatStats(report StatsReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func resultOutcome(r *core.Result) string {
	if r == nil {
		return ""
	}
	if r.Success {
		if r.Provenance.FromCache {
			return "cached"
		}
		return "ok"
	}
	return string(r.ErrorKind)
}

func resultDetail(r *core.Result) string {
	if r == nil {
		return ""
	}
	if r.Success {
		return truncate(string(r.Payload), 60)
	}
	return truncate(r.Detail, 60)
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
