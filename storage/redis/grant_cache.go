package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tehman700/paygate/entitlements"
)

// GrantCache is a Redis-backed implementation of entitlements.GrantCache.
// Redis expiry mirrors the grant TTL, so stale records vanish on their own
// even if no resolver reads them again.
type GrantCache struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewGrantCache(rdb *redis.Client, keyPrefix string, ttl time.Duration) *GrantCache {
	if keyPrefix == "" {
		keyPrefix = "paygate:grant:"
	}
	if ttl <= 0 {
		ttl = entitlements.DefaultTTL
	}
	return &GrantCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (c *GrantCache) key(product string) string { return c.keyNS + product }

func (c *GrantCache) Put(ctx context.Context, product string, rec entitlements.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(product), b, c.ttl).Err()
}

func (c *GrantCache) Get(ctx context.Context, product string) (entitlements.Record, bool, error) {
	val, err := c.rdb.Get(ctx, c.key(product)).Bytes()
	if err == redis.Nil {
		return entitlements.Record{}, false, nil
	}
	if err != nil {
		return entitlements.Record{}, false, err
	}
	var rec entitlements.Record
	if err := json.Unmarshal(val, &rec); err != nil {
		return entitlements.Record{}, false, err
	}
	return rec, true, nil
}

func (c *GrantCache) Del(ctx context.Context, product string) error {
	return c.rdb.Del(ctx, c.key(product)).Err()
}
