package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapacityHoldsMostRecentKeys(t *testing.T) {
	c := NewBounded(3)
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key-%d", i), Entry{StatusCode: 200, Payload: []byte{byte(i)}})
	}

	require.Equal(t, 3, c.Len())
	for i := 7; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%d", i))
		require.True(t, ok, "key-%d should be retained", i)
	}
	_, ok := c.Get("key-6")
	require.False(t, ok)
}

func TestGetRefreshesRecency(t *testing.T) {
	c := NewBounded(2)
	c.Set("a", Entry{StatusCode: 200, Payload: []byte("1")})
	c.Set("b", Entry{StatusCode: 200, Payload: []byte("2")})

	_, ok := c.Get("a")
	require.True(t, ok)

	// "b" is now least-recently-used and should be the one evicted.
	c.Set("c", Entry{StatusCode: 200, Payload: []byte("3")})

	_, ok = c.Get("b")
	require.False(t, ok)
	value, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, []byte("1"), value.Payload)
}

func TestSetExistingKeyUpdatesWithoutEviction(t *testing.T) {
	c := NewBounded(2)
	c.Set("a", Entry{StatusCode: 200, Payload: []byte("1")})
	c.Set("b", Entry{StatusCode: 200, Payload: []byte("2")})
	c.Set("a", Entry{StatusCode: 200, Payload: []byte("updated")})

	require.Equal(t, 2, c.Len())
	value, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, []byte("updated"), value.Payload)
}

func TestStatsAccounting(t *testing.T) {
	c := NewBounded(4)
	c.Set("a", Entry{StatusCode: 200, Payload: []byte("1")})

	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Get("also-missing")

	stats := c.Stats()
	require.Equal(t, int64(2), stats.Hits)
	require.Equal(t, int64(2), stats.Misses)
	require.Equal(t, int64(4), stats.Hits+stats.Misses)
	require.InDelta(t, 0.5, stats.HitRate, 1e-9)
	require.InDelta(t, 0.25, stats.Utilization, 1e-9)
	require.Equal(t, 1, stats.Size)
	require.Equal(t, 4, stats.MaxSize)
}

func TestClearResetsEverything(t *testing.T) {
	c := NewBounded(4)
	c.Set("a", Entry{StatusCode: 200, Payload: []byte("1")})
	c.Get("a")
	c.Get("missing")

	c.Clear()

	stats := c.Stats()
	require.Zero(t, stats.Size)
	require.Zero(t, stats.Hits)
	require.Zero(t, stats.Misses)
	require.Zero(t, stats.HitRate)

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestSizeNeverExceedsMax(t *testing.T) {
	c := NewBounded(5)
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("key-%d", i%17), Entry{StatusCode: 200, Payload: []byte("x")})
		require.LessOrEqual(t, c.Len(), 5)
	}
}
