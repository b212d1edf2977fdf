package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	config := DefaultCacheConfig()
	config.Addr = mr.Addr()
	config.MaxRetries = 0

	c := NewRedisCache(config)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestDefaultCacheConfig(t *testing.T) {
	config := DefaultCacheConfig()

	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Zero(t, config.DB)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
	assert.Equal(t, "kanmind:", config.KeyPrefix)

	opts := config.options()
	assert.Equal(t, config.Addr, opts.Addr)
	assert.Equal(t, config.MinIdleConns, opts.MinIdleConns)
}

func TestNewRedisCache_WithNilConfig(t *testing.T) {
	c := NewRedisCache(nil)
	defer c.Close()

	require.NotNil(t, c.client)
	assert.Equal(t, "kanmind:", c.prefix)
}

func TestRedisCache_RoundTripsUserProfiles(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	type profile struct {
		ID       uint   `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"fullname"`
	}
	want := profile{ID: 7, Email: "jane@example.com", FullName: "Jane Doe"}
	require.NoError(t, c.Set(ctx, "user:7", want, time.Minute))

	var got profile
	require.NoError(t, c.Get(ctx, "user:7", &got))
	assert.Equal(t, want, got)
}

func TestRedisCache_KeysArePrefixedAndExpire(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "revoked:abc", true, time.Minute))
	assert.True(t, mr.Exists("kanmind:revoked:abc"))
	assert.Equal(t, time.Minute, mr.TTL("kanmind:revoked:abc"))

	mr.FastForward(2 * time.Minute)
	exists, err := c.Exists(ctx, "revoked:abc")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCache_MissAndBadPayloads(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	var s string
	assert.ErrorIs(t, c.Get(ctx, "absent", &s), ErrCacheMiss)

	assert.Error(t, c.Set(ctx, "chan", make(chan int), time.Minute), "channels cannot be encoded")

	mr.Set("kanmind:broken", "not-json")
	var m map[string]interface{}
	err := c.Get(ctx, "broken", &m)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_DeleteAndExists(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	exists, err := c.Exists(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Set(ctx, "user:1", "data", time.Minute))
	exists, err = c.Exists(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "user:1"))
	var s string
	assert.ErrorIs(t, c.Get(ctx, "user:1", &s), ErrCacheMiss)
}

func TestRedisCache_HealthFollowsServer(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	assert.NoError(t, c.Health(ctx))
	assert.Contains(t, c.Stats(), "pool_total")

	mr.Close()
	assert.Error(t, c.Health(ctx))
}

func TestRedisCache_UnusableAfterClose(t *testing.T) {
	c, _ := setupTestRedis(t)

	require.NoError(t, c.Close())
	assert.Error(t, c.Set(context.Background(), "k", "v", time.Minute))
}

func TestCacheErrors(t *testing.T) {
	assert.EqualError(t, ErrCacheMiss, "cache miss")
	assert.EqualError(t, ErrCacheDown, "cache unavailable")
}
