package refresh

import (
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type cacheEntry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a keyed store with a single TTL. An entry whose age has reached
// the TTL is reported as absent, never returned stale.
type Cache[V any] struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry[V]
}

func NewCache[V any](clock clockwork.Clock, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		clock: clock,
		ttl:   ttl,
		items: make(map[string]cacheEntry[V]),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.items[key]
	if !ok || c.clock.Since(entry.fetchedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheEntry[V]{value: value, fetchedAt: c.clock.Now()}
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeletePrefix drops every entry whose key starts with prefix. Forced
// refreshes use it to clear all cached weeks of one league at once.
func (c *Cache[V]) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}
