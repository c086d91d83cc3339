package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/Tehman700/paygate/entitlements"
)

// GrantCache is an in-memory implementation of entitlements.GrantCache,
// keyed per product. It replaces the legacy single process-wide record
// slot: one product's grant can no longer shadow another's.
type GrantCache struct {
	mu     sync.Mutex
	ttl    time.Duration
	data   map[string]item
	closed chan struct{}
}

type item struct {
	rec entitlements.Record
	exp time.Time
}

// NewGrantCache creates a new in-memory grant cache with the given TTL.
// If ttl <= 0, entitlements.DefaultTTL is used.
// Starts a background goroutine to clean up expired entries every minute.
func NewGrantCache(ttl time.Duration) *GrantCache {
	if ttl <= 0 {
		ttl = entitlements.DefaultTTL
	}
	c := &GrantCache{ttl: ttl, data: make(map[string]item), closed: make(chan struct{})}
	go c.cleanupLoop()
	return c
}

func (c *GrantCache) Put(ctx context.Context, product string, rec entitlements.Record) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[product] = item{rec: rec, exp: time.Now().Add(c.ttl)}
	return nil
}

func (c *GrantCache) Get(ctx context.Context, product string) (entitlements.Record, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.data[product]
	if !ok {
		return entitlements.Record{}, false, nil
	}
	if time.Now().After(it.exp) {
		delete(c.data, product)
		return entitlements.Record{}, false, nil
	}
	return it.rec, true, nil
}

func (c *GrantCache) Del(ctx context.Context, product string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, product)
	return nil
}

// cleanupLoop runs in the background and removes expired entries every minute.
func (c *GrantCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.closed:
			return
		}
	}
}

// cleanup removes all expired entries from the cache.
func (c *GrantCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, v := range c.data {
		if now.After(v.exp) {
			delete(c.data, k)
		}
	}
}

// Close stops the background cleanup goroutine.
// Should be called when the cache is no longer needed.
func (c *GrantCache) Close() error {
	close(c.closed)
	return nil
}
