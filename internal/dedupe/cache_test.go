// ABOUTME: Tests for the tombstone cache
// ABOUTME: Validates TTL expiry with a fake clock, size eviction, sweeping, and concurrent use

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration, size int) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl, size, WithClock(clock.Now))
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_CheckUnknownKey(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 10)

	assert.False(t, c.Check("never-marked"))
}

func TestCache_MarkAllThenCheck(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 10)

	c.MarkAll([]string{"msg-1", "msg-2"})
	assert.True(t, c.Check("msg-1"))
	assert.True(t, c.Check("msg-2"))
	assert.False(t, c.Check("msg-3"))
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)

	c.MarkAll([]string{"msg-1"})
	clock.Advance(59 * time.Second)
	assert.True(t, c.Check("msg-1"))

	clock.Advance(2 * time.Second)
	assert.False(t, c.Check("msg-1"))
}

func TestCache_RemarkRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)

	c.MarkAll([]string{"msg-1"})
	clock.Advance(50 * time.Second)
	c.MarkAll([]string{"msg-1"})
	clock.Advance(50 * time.Second)

	assert.True(t, c.Check("msg-1"))
}

func TestCache_EvictsOldestWhenFull(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 3)

	c.MarkAll([]string{"a", "b", "c"})
	c.MarkAll([]string{"d"})

	assert.False(t, c.Check("a"))
	assert.True(t, c.Check("b"))
	assert.True(t, c.Check("c"))
	assert.True(t, c.Check("d"))
}

func TestCache_RemarkMovesToBack(t *testing.T) {
	c, _ := newTestCache(t, time.Minute, 3)

	c.MarkAll([]string{"a", "b", "c"})
	c.MarkAll([]string{"a", "d"})

	assert.True(t, c.Check("a"))
	assert.False(t, c.Check("b"))
}

func TestCache_Sweep(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 10)

	c.MarkAll([]string{"old"})
	clock.Advance(2 * time.Minute)
	c.MarkAll([]string{"new"})
	c.Sweep()

	c.mu.Lock()
	_, hasOld := c.entries["old"]
	_, hasNew := c.entries["new"]
	c.mu.Unlock()

	assert.False(t, hasOld)
	assert.True(t, hasNew)
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute, 1000)
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-%d", g, i)
				c.MarkAll([]string{key})
				c.Check(key)
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 8; g++ {
		for i := 0; i < 100; i++ {
			assert.True(t, c.Check(fmt.Sprintf("g%d-%d", g, i)))
		}
	}
}
