// Package monitor aggregates call outcomes. It only observes; it never
// gates gateway behavior and never returns an error.
package monitor

import (
	"sync"
	"time"
)

// Monitor accumulates counters and timings over call outcomes.
type Monitor struct {
	mu         sync.Mutex
	totalCalls int64
	failCount  int64
	latencySum time.Duration
	resetAt    time.Time
	Clock      func() time.Time
}

// Summary is a point-in-time snapshot of the monitor's counters.
type Summary struct {
	TotalCalls     int64         `json:"total_calls"`
	FailCount      int64         `json:"fail_count"`
	SuccessRate    float64       `json:"success_rate"`
	AverageLatency time.Duration `json:"average_latency"`
	Uptime         time.Duration `json:"uptime"`
}

// New creates a monitor anchored at the current time.
func New() *Monitor {
	m := &Monitor{}
	m.resetAt = m.now()
	return m
}

// RecordCall counts one call outcome and its latency.
func (m *Monitor) RecordCall(success bool, latency time.Duration) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCalls++
	if !success {
		m.failCount++
	}
	m.latencySum += latency
}

// Summary returns the current counters. SuccessRate is 0 when no calls
// have been recorded.
func (m *Monitor) Summary() Summary {
	if m == nil {
		return Summary{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	summary := Summary{
		TotalCalls: m.totalCalls,
		FailCount:  m.failCount,
		Uptime:     m.now().Sub(m.resetAt),
	}
	if m.totalCalls > 0 {
		summary.SuccessRate = float64(m.totalCalls-m.failCount) / float64(m.totalCalls)
		summary.AverageLatency = m.latencySum / time.Duration(m.totalCalls)
	}
	return summary
}

// Reset zeroes all counters and restarts the uptime anchor.
func (m *Monitor) Reset() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalCalls = 0
	m.failCount = 0
	m.latencySum = 0
	m.resetAt = m.now()
}

func (m *Monitor) now() time.Time {
	if m != nil && m.Clock != nil {
		return m.Clock()
	}
	return time.Now().UTC()
}
