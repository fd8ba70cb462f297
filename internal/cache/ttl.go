// Package cache provides the optional performance caches in front of the
// routing tiers: a small bounded TTL cache in memory and a SQLite-backed
// disk cache. Neither is required for correctness.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// TTL is a bounded in-memory cache with per-entry expiry. When full, the
// least recently inserted entry is evicted. Safe for concurrent use.
type TTL[V any] struct {
	maxSize int
	ttl     time.Duration

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest
	now     func() time.Time
}

type ttlEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// NewTTL creates a cache holding at most maxSize entries for at most ttl.
// Defaults: 50 entries, 1 hour.
func NewTTL[V any](maxSize int, ttl time.Duration) *TTL[V] {
	if maxSize <= 0 {
		maxSize = 50
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TTL[V]{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the cached value and whether it was present and fresh.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	entry := el.Value.(*ttlEntry[V])
	if c.now().After(entry.expiresAt) {
		c.remove(el)
		return zero, false
	}
	return entry.value, true
}

// Set stores a value, evicting the oldest entry if the cache is full.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*ttlEntry[V])
		entry.value = value
		entry.expiresAt = c.now().Add(c.ttl)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.remove(oldest)
	}

	el := c.order.PushBack(&ttlEntry[V]{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[key] = el
}

// Len returns the number of entries, including not-yet-swept expired ones.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTL[V]) remove(el *list.Element) {
	entry := el.Value.(*ttlEntry[V])
	delete(c.entries, entry.key)
	c.order.Remove(el)
}
