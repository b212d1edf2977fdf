package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCache(0)

	require.NoError(t, mem.Set(ctx, "k", map[string]int{"a": 1}, 20*time.Millisecond))

	var got map[string]int
	require.NoError(t, mem.Get(ctx, "k", &got))
	assert.Equal(t, 1, got["a"])

	got["a"] = 2
	var again map[string]int
	require.NoError(t, mem.Get(ctx, "k", &again))
	assert.Equal(t, 1, again["a"], "cached values must not alias caller state")

	time.Sleep(30 * time.Millisecond)
	assert.ErrorIs(t, mem.Get(ctx, "k", &got), ErrCacheMiss)

	found, err := mem.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryCache(2)

	require.NoError(t, mem.Set(ctx, "revoked:a", true, time.Hour))
	require.NoError(t, mem.Set(ctx, "revoked:b", true, time.Hour))

	var v bool
	require.NoError(t, mem.Get(ctx, "revoked:a", &v))
	require.NoError(t, mem.Set(ctx, "revoked:c", true, time.Hour))

	assert.Equal(t, 2, mem.Stats()["entries"])
	found, _ := mem.Exists(ctx, "revoked:b")
	assert.False(t, found, "least recently used entry is evicted")
	for _, key := range []string{"revoked:a", "revoked:c"} {
		found, _ = mem.Exists(ctx, key)
		assert.True(t, found, key)
	}

	require.NoError(t, mem.Close())
	assert.Equal(t, 0, mem.Stats()["entries"])
}

func TestMultiLevelCache_WithoutRedis(t *testing.T) {
	ctx := context.Background()
	c := NewMultiLevelCache(nil, nil)

	require.NoError(t, c.Set(ctx, "revoked:1", true, time.Minute))

	found, err := c.Exists(ctx, "revoked:1")
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, c.Delete(ctx, "revoked:1"))
	var v bool
	assert.ErrorIs(t, c.Get(ctx, "revoked:1", &v), ErrCacheMiss)
	assert.NoError(t, c.Health(ctx))
}

func TestMultiLevelCache_ReadsThroughToRedis(t *testing.T) {
	ctx := context.Background()
	redisCache, _ := setupTestRedis(t)
	writer := NewMultiLevelCache(redisCache, nil)
	reader := NewMultiLevelCache(redisCache, nil)

	require.NoError(t, writer.Set(ctx, "revoked:abc", true, time.Hour))

	found, err := reader.Exists(ctx, "revoked:abc")
	require.NoError(t, err)
	assert.True(t, found, "a second instance must see entries written through to redis")

	var v bool
	require.NoError(t, reader.Get(ctx, "revoked:abc", &v))
	assert.True(t, v)

	metrics := reader.Metrics()
	assert.Equal(t, int64(2), metrics.Hits)
}

func TestMultiLevelCache_MissIsNotAFailure(t *testing.T) {
	ctx := context.Background()
	redisCache, _ := setupTestRedis(t)
	breaker := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Minute, HalfOpenMaxCalls: 1})
	c := NewMultiLevelCache(redisCache, breaker)

	var v string
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, c.Get(ctx, "missing", &v), ErrCacheMiss)
	}
	assert.Equal(t, CircuitBreakerClosed, breaker.GetState())
}

func TestMultiLevelCache_RedisOutageOpensBreaker(t *testing.T) {
	ctx := context.Background()
	redisCache, mr := setupTestRedis(t)
	breaker := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxCalls: 1})
	c := NewMultiLevelCache(redisCache, breaker)

	mr.Close()

	_, err := c.Exists(ctx, "revoked:x")
	assert.ErrorIs(t, err, ErrCacheDown)
	_, err = c.Exists(ctx, "revoked:x")
	assert.ErrorIs(t, err, ErrCacheDown)

	assert.Equal(t, CircuitBreakerOpen, breaker.GetState())
	_, err = c.Exists(ctx, "revoked:x")
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Error(t, c.Health(ctx))

	stats := c.Stats()
	assert.Equal(t, int64(3), stats["errors"])
}

func TestMultiLevelCache_L1ServesWhileRedisIsDown(t *testing.T) {
	ctx := context.Background()
	redisCache, mr := setupTestRedis(t)
	c := NewMultiLevelCache(redisCache, nil)

	require.NoError(t, c.Set(ctx, "user:1", "Jane", time.Hour))
	mr.Close()

	var name string
	require.NoError(t, c.Get(ctx, "user:1", &name))
	assert.Equal(t, "Jane", name)
}

func TestCacheMetrics_HitRate(t *testing.T) {
	m := NewCacheMetrics()
	assert.Equal(t, 0.0, m.HitRate())

	m.RecordHit()
	m.RecordHit()
	m.RecordHit()
	m.RecordMiss()
	assert.InDelta(t, 75.0, m.HitRate(), 0.001)

	m.Reset()
	assert.Equal(t, int64(0), m.GetStats().Hits)
}
