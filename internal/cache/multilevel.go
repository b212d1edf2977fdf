package cache

import (
	"context"
	"errors"
	"time"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

// MultiLevelCache keeps a short-lived in-process copy (L1) in front of redis
// (L2). Calls to redis go through a circuit breaker; with no redis configured
// the cache runs on L1 alone.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	l1TTL   time.Duration
}

func NewMultiLevelCache(redisCache *RedisCache, breaker *CircuitBreaker) *MultiLevelCache {
	if breaker == nil {
		breaker = NewCircuitBreaker(nil)
	}
	return &MultiLevelCache{
		l1:      NewMemoryCache(0),
		l2:      redisCache,
		breaker: breaker,
		metrics: NewCacheMetrics(),
		l1TTL:   time.Minute,
	}
}

func (c *MultiLevelCache) l1Expiry(ttl time.Duration) time.Duration {
	if c.l2 == nil || (ttl > 0 && ttl < c.l1TTL) {
		return ttl
	}
	return c.l1TTL
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.l1.Set(ctx, key, value, c.l1Expiry(ttl)); err != nil {
		c.metrics.RecordError()
		return err
	}
	c.metrics.RecordSet()

	if c.l2 == nil {
		return nil
	}
	if err := c.breaker.Execute(func() error {
		return c.l2.Set(ctx, key, value, ttl)
	}); err != nil {
		c.metrics.RecordError()
		return errors.Join(ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := c.l1.Get(ctx, key, dest); err == nil {
		c.metrics.RecordHit()
		return nil
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	var missed bool
	err := c.breaker.Execute(func() error {
		err := c.l2.Get(ctx, key, dest)
		if errors.Is(err, ErrCacheMiss) {
			missed = true
			return nil
		}
		return err
	})
	switch {
	case err != nil:
		c.metrics.RecordError()
		return errors.Join(ErrCacheDown, err)
	case missed:
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	c.metrics.RecordHit()
	_ = c.l1.Set(ctx, key, dest, c.l1TTL)
	return nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = c.l1.Delete(ctx, key)
	c.metrics.RecordDelete()

	if c.l2 == nil {
		return nil
	}
	if err := c.breaker.Execute(func() error {
		return c.l2.Delete(ctx, key)
	}); err != nil {
		c.metrics.RecordError()
		return errors.Join(ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) Exists(ctx context.Context, key string) (bool, error) {
	if found, _ := c.l1.Exists(ctx, key); found {
		c.metrics.RecordHit()
		return true, nil
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return false, nil
	}

	var found bool
	err := c.breaker.Execute(func() error {
		var err error
		found, err = c.l2.Exists(ctx, key)
		return err
	})
	if err != nil {
		c.metrics.RecordError()
		return false, errors.Join(ErrCacheDown, err)
	}
	if found {
		c.metrics.RecordHit()
	} else {
		c.metrics.RecordMiss()
	}
	return found, nil
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	metrics := c.metrics.GetStats()
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(),
		"breaker":  c.breaker.GetStats(),
		"hits":     metrics.Hits,
		"misses":   metrics.Misses,
		"errors":   metrics.Errors,
		"hit_rate": c.metrics.HitRate(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}
	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 == nil {
		return nil
	}
	if c.breaker.GetState() == CircuitBreakerOpen {
		return ErrCircuitBreakerOpen
	}
	return c.l2.Health(ctx)
}

func (c *MultiLevelCache) Metrics() CacheMetricsSnapshot {
	return c.metrics.GetStats()
}

func (c *MultiLevelCache) Close() error {
	_ = c.l1.Close()
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}
