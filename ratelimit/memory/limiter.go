package memorylimiter

import (
	"fmt"
	"sync"
	"time"
)

// Limit defines window and max count for a bucket.
type Limit struct {
	Limit  int
	Window time.Duration
}

// DefaultLimits covers the payment API surface. The check endpoints are
// cheap but enumerable (email x product), so they get tight windows; the
// webhook bucket is keyed by provider, not visitor, and stays loose.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"check_user_payment":      {Limit: 20, Window: time.Minute},
		"check_recent_payment":    {Limit: 20, Window: time.Minute},
		"create_checkout_session": {Limit: 10, Window: time.Minute},
		"checkout_webhook":        {Limit: 120, Window: time.Minute},
		"default":                 {Limit: 60, Window: time.Minute},
	}
}

type bucketState struct {
	// timestamps holds request times in Unix ms, newest last.
	timestamps []int64
}

// Limiter is an in-memory sliding-window rate limiter.
// It is intended as a single-node fallback when Redis is unavailable.
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]Limit
	buckets map[string]*bucketState
}

// New constructs a new in-memory limiter with the provided per-bucket limits.
// Pass DefaultLimits() for the standard payment API buckets.
func New(limits map[string]Limit) *Limiter {
	if limits == nil {
		limits = map[string]Limit{}
	}
	return &Limiter{
		limits:  limits,
		buckets: make(map[string]*bucketState),
	}
}

func (l *Limiter) get(bucket string) (Limit, bool) {
	if v, ok := l.limits[bucket]; ok {
		return v, true
	}
	if v, ok := l.limits["default"]; ok {
		return v, true
	}
	return Limit{Limit: 100, Window: time.Minute}, false
}

// AllowNamed matches the gin adapter's RateLimiter interface.
// It uses a simple sliding window over the configured duration, pruning
// expired entries on each call and removing empty buckets to avoid unbounded
// memory growth.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	if l == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}

	lim, _ := l.get(bucket)
	nowMs := time.Now().UnixNano() / 1e6
	windowStart := nowMs - lim.Window.Milliseconds()
	limitKey := fmt.Sprintf("%s:%s", key, bucket)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[limitKey]
	if !ok {
		b = &bucketState{}
		l.buckets[limitKey] = b
	}

	// Prune timestamps outside the window.
	ts := b.timestamps
	pruneIdx := 0
	for pruneIdx < len(ts) && ts[pruneIdx] < windowStart {
		pruneIdx++
	}
	if pruneIdx > 0 {
		ts = ts[pruneIdx:]
	}

	if len(ts) >= lim.Limit {
		// Deny without recording this attempt.
		b.timestamps = ts
		if len(ts) == 0 {
			delete(l.buckets, limitKey)
		}
		return false, nil
	}

	// Record this request and allow.
	ts = append(ts, nowMs)
	b.timestamps = ts

	return true, nil
}
