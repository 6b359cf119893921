package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	b   []byte
	exp time.Time
}

// TTLCache is the in-process BytesCache used when redis is disabled.
type TTLCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	max int
}

// NewTTLCache bounds the cache to max entries; when full, expired entries are swept
// and, failing that, the insert is dropped.
func NewTTLCache(max int) *TTLCache {
	if max <= 0 {
		max = 1024
	}
	return &TTLCache{m: make(map[string]entry), max: max}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.b, true, nil
}

func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[key]; !exists && len(c.m) >= c.max {
		c.sweep()
		if len(c.m) >= c.max {
			return nil
		}
	}
	c.m[key] = entry{b: value, exp: exp}
	return nil
}

func (c *TTLCache) sweep() {
	now := time.Now()
	for k, e := range c.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(c.m, k)
		}
	}
}
