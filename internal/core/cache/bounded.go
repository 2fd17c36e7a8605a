// Package cache provides a bounded in-memory LRU cache for ephemeral
// per-run results.
package cache

import (
	"container/list"
	"sync"
)

// Bounded is an LRU cache with a fixed capacity. Structural mutations are
// guarded by a single mutex so the map and access-order list always agree.
type Bounded struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List
	hits    int64
	misses  int64
}

type boundedEntry struct {
	key   string
	value Entry
}

// Entry is a cached upstream response. The status code travels with the
// payload so a cache hit reports what the upstream actually returned.
type Entry struct {
	StatusCode int
	Payload    []byte
}

// Stats is a side-effect-free snapshot of the cache's counters.
type Stats struct {
	Size        int     `json:"size"`
	MaxSize     int     `json:"max_size"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
	Utilization float64 `json:"utilization"`
}

const defaultMaxSize = 256

// NewBounded creates a cache holding at most maxSize entries.
func NewBounded(maxSize int) *Bounded {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Bounded{
		maxSize: maxSize,
		entries: make(map[string]*list.Element, maxSize),
		order:   list.New(),
	}
}

// Get returns the cached entry and marks the key most-recently-used.
func (c *Bounded) Get(key string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return Entry{}, false
	}

	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*boundedEntry).value, true
}

// Set stores an entry, updating recency if the key exists and evicting the
// least-recently-used entry when the cache is full.
func (c *Bounded) Set(key string, value Entry) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*boundedEntry).value = value
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*boundedEntry).key)
		}
	}

	c.entries[key] = c.order.PushFront(&boundedEntry{key: key, value: value})
}

// Len returns the current entry count.
func (c *Bounded) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the current counters without side effects.
func (c *Bounded) Stats() Stats {
	if c == nil {
		return Stats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Size:    c.order.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	if stats.MaxSize > 0 {
		stats.Utilization = float64(stats.Size) / float64(stats.MaxSize)
	}
	return stats
}

// Clear empties the cache and resets hit/miss counters in one step.
func (c *Bounded) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element, c.maxSize)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}
