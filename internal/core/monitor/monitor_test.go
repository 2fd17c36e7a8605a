package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSummaryEmpty(t *testing.T) {
	m := New()
	summary := m.Summary()
	require.Zero(t, summary.TotalCalls)
	require.Zero(t, summary.FailCount)
	require.Zero(t, summary.SuccessRate)
	require.Zero(t, summary.AverageLatency)
}

func TestRecordCall(t *testing.T) {
	m := New()
	m.RecordCall(true, 100*time.Millisecond)
	m.RecordCall(true, 300*time.Millisecond)
	m.RecordCall(false, 200*time.Millisecond)

	summary := m.Summary()
	require.Equal(t, int64(3), summary.TotalCalls)
	require.Equal(t, int64(1), summary.FailCount)
	require.InDelta(t, 2.0/3.0, summary.SuccessRate, 1e-9)
	require.Equal(t, 200*time.Millisecond, summary.AverageLatency)
}

func TestReset(t *testing.T) {
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	m := &Monitor{Clock: func() time.Time { return clock }}
	m.Reset()

	m.RecordCall(false, time.Second)
	clock = clock.Add(time.Minute)

	require.Equal(t, time.Minute, m.Summary().Uptime)

	m.Reset()
	summary := m.Summary()
	require.Zero(t, summary.TotalCalls)
	require.Zero(t, summary.FailCount)
	require.Zero(t, summary.Uptime)
}

func TestNilMonitorNeverPanics(t *testing.T) {
	var m *Monitor
	m.RecordCall(true, time.Second)
	m.Reset()
	require.Zero(t, m.Summary().TotalCalls)
}
