package news

import (
	"sync"
	"time"
)

// responseCache is a small TTL cache for upstream responses, keyed by request
// URL. Two callers missing the same key concurrently will both fetch; the
// second write wins, which is acceptable for idempotent GET responses.
type responseCache struct {
	ttl   time.Duration
	nowFn func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data    []byte
	expires time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		nowFn:   time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.nowFn().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.data, true
}

func (c *responseCache) set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{data: data, expires: c.nowFn().Add(c.ttl)}
}
