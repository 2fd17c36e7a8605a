package output

import (
	"encoding/json"

	"github.com/gatepace/gatepace/internal/core"
	"github.com/gatepace/gatepace/internal/core/store"
)

// JSONFormatter renders data as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) FormatResults(results []*core.Result) (string, error) {
	return f.marshal(results)
}

func (f *JSONFormatter) FormatRegistrations(regs []core.Registration) (string, error) {
	return f.marshal(regs)
}

func (f *JSONFormatter) FormatCacheEntries(entries []core.CacheEntry) (string, error) {
	return f.marshal(entries)
}

func (f *JSONFormatter) FormatLimiterStates(entries []store.LimiterEntry) (string, error) {
	type row struct {
		API   string            `json:"api"`
		State core.LimiterState `json:"state"`
	}
	rows := make([]row, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, row{API: entry.API, State: entry.State})
	}
	return f.marshal(rows)
}

func (f *JSONFormatter) FormatStats(report StatsReport) (string, error) {
	return f.marshal(report)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
