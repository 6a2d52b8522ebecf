package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// maxEntries bounds the cache since every distinct search string is its own key.
const maxEntries = 1024

// Cache is an in-process TTL cache for serialized list pages.
// gen counts ClearPrefix calls; fills taken before a clear are dropped.
type Cache struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	gen uint64
	now func() time.Time
}
type entry struct {
	val []byte
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

func (c *Cache) Generation(_ context.Context) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// SetIfGeneration stores val unless ClearPrefix ran since gen was read.
func (c *Cache) SetIfGeneration(_ context.Context, key string, val []byte, gen uint64) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return false
	}
	c.setLocked(key, val, now)
	return true
}

func (c *Cache) setLocked(key string, val []byte, now time.Time) {
	if _, exists := c.m[key]; !exists && len(c.m) >= maxEntries {
		c.evictLocked(now)
	}
	c.m[key] = entry{val: val, exp: now.Add(c.ttl)}
}

// evictLocked drops expired entries, or one arbitrary entry if none expired.
func (c *Cache) evictLocked(now time.Time) {
	before := len(c.m)
	for k, e := range c.m {
		if now.After(e.exp) {
			delete(c.m, k)
		}
	}
	if len(c.m) < before {
		return
	}
	for k := range c.m {
		delete(c.m, k)
		return
	}
}

// ClearPrefix drops every key starting with prefix and bumps the generation.
func (c *Cache) ClearPrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	for k := range c.m {
		if strings.HasPrefix(k, prefix) {
			delete(c.m, k)
		}
	}
	c.gen++
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
