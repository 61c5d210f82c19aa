package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestGetReturnsFreshEntry(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(time.Minute, 10, clock.Now)

	c.Set("k", "v")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestGetMissesUnknownKey(t *testing.T) {
	c := New(time.Minute, 10)

	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(time.Minute, 10, clock.Now)

	c.Set("k", "v")

	clock.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should still be valid just before the TTL")

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should expire once the TTL elapses")
}

func TestExpiredEntryIsRemovedOnLookup(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(time.Minute, 10, clock.Now)

	c.Set("k", "v")
	clock.Advance(2 * time.Minute)

	_, ok := c.Get("k")
	require.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSetOverwritesAndRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(time.Minute, 10, clock.Now)

	c.Set("k", "old")
	clock.Advance(50 * time.Second)
	c.Set("k", "new")
	clock.Advance(30 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok, "overwrite should restart the TTL")
	assert.Equal(t, "new", got)
}

func TestEvictsOldestWhenOverCapacity(t *testing.T) {
	clock := newFakeClock()
	c := NewWithClock(time.Hour, 20, clock.Now)

	for i := 0; i < 21; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
		clock.Advance(time.Second)
	}

	// 21 entries minus capacity/10 = 2 evicted.
	assert.Equal(t, 19, c.Len())

	_, ok := c.Get("key-0")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("key-1")
	assert.False(t, ok, "second-oldest entry should be evicted")
	_, ok = c.Get("key-20")
	assert.True(t, ok, "newest entry should survive")
}

func TestZeroCapacityMeansUnbounded(t *testing.T) {
	c := New(time.Hour, 0)

	for i := 0; i < 500; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	assert.Equal(t, 500, c.Len())
}
