// Package cache provides a small mutex-guarded TTL cache used for response
// memoization. Two independent instances exist at runtime: one in front of
// the chat pipeline and one inside the LLM client.
package cache

import (
	"sort"
	"sync"
	"time"
)

// Clock returns the current time. Injected so tests can control expiry.
type Clock func() time.Time

type entry struct {
	value     interface{}
	timestamp time.Time
}

// TTLCache is a capacity-bounded key/value cache with lazy expiry.
// An entry is valid iff now - timestamp < ttl. When the cache grows past its
// capacity, the oldest ~10% of entries are evicted in one sweep.
type TTLCache struct {
	mu       sync.Mutex
	entries  map[string]entry
	ttl      time.Duration
	capacity int
	now      Clock
}

// New creates a TTLCache with the given TTL and capacity, using the wall
// clock. Capacity <= 0 means unbounded.
func New(ttl time.Duration, capacity int) *TTLCache {
	return NewWithClock(ttl, capacity, time.Now)
}

// NewWithClock creates a TTLCache with an injected clock.
func NewWithClock(ttl time.Duration, capacity int, now Clock) *TTLCache {
	return &TTLCache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		capacity: capacity,
		now:      now,
	}
}

// Get returns the cached value for key if present and unexpired.
// Expired entries are removed on lookup.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.timestamp) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, stamping it with the current time, and prunes
// the oldest entries if the cache has outgrown its capacity.
func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, timestamp: c.now()}

	if c.capacity > 0 && len(c.entries) > c.capacity {
		c.pruneLocked()
	}
}

// Len reports the number of entries currently stored, expired or not.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// pruneLocked removes the oldest ~10% of entries. Caller must hold mu.
func (c *TTLCache) pruneLocked() {
	pruneCount := c.capacity / 10
	if pruneCount < 1 {
		pruneCount = 1
	}

	type keyed struct {
		key string
		ts  time.Time
	}
	all := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, keyed{k, e.timestamp})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })

	for i := 0; i < pruneCount && i < len(all); i++ {
		delete(c.entries, all[i].key)
	}
}
