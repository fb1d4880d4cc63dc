// ABOUTME: TTL-bounded set of message ids that must not reappear in the timeline
// ABOUTME: Used to tombstone ids removed by messages_cleared against stale pulls and replays

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired entries are swept in the background.
const DefaultSweepInterval = time.Minute

type entry struct {
	markedAt time.Time
	elem     *list.Element
}

// Cache is a thread-safe, TTL-based, size-limited set of keys. Keys are kept
// in insertion order so the oldest can be evicted in O(1) when full.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	stop    chan struct{}
	closed  bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache holding at most maxSize keys for ttl each.
// A background goroutine sweeps expired entries until Close is called.
func New(ttl time.Duration, maxSize int, opts ...Option) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &Cache{
		entries: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.sweepLoop(DefaultSweepInterval)
	return c
}

// Check reports whether key is present and not expired.
func (c *Cache) Check(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && c.live(e)
}

// MarkAll records every key in keys, refreshing the TTL of keys already present.
func (c *Cache) MarkAll(keys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.markLocked(k)
	}
}

// Sweep removes expired entries immediately.
func (c *Cache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if !c.live(e) {
			c.order.Remove(e.elem)
			delete(c.entries, key)
		}
	}
}

// Close stops the background sweeper. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.stop)
}

func (c *Cache) live(e *entry) bool {
	return c.now().Sub(e.markedAt) < c.ttl
}

// markLocked must be called with mu held.
func (c *Cache) markLocked(key string) {
	now := c.now()

	if e, ok := c.entries[key]; ok {
		e.markedAt = now
		c.order.MoveToBack(e.elem)
		return
	}

	if len(c.entries) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			oldest, _ := front.Value.(string)
			c.order.Remove(front)
			delete(c.entries, oldest)
		}
	}

	c.entries[key] = &entry{
		markedAt: now,
		elem:     c.order.PushBack(key),
	}
}

func (c *Cache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}
