package factory

import (
	"context"
	"testing"
	"time"

	"github.com/akeren/clothiq-api/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingOnlyCache struct{}

func (pingOnlyCache) Ping(context.Context) error { return nil }

type clientCache struct {
	pingOnlyCache
	client *redis.Client
}

func (c clientCache) GetClient() *redis.Client { return c.client }

func TestFromCache_InMemoryWithoutClient(t *testing.T) {
	f := FromCache(pingOnlyCache{}, nil)
	assert.False(t, f.Distributed())

	limiter := f.New("waitlist", 5, time.Minute)
	defer limiter.Close()

	_, ok := limiter.(*ratelimit.MemoryLimiter)
	assert.True(t, ok)

	requests, window := limiter.Limits()
	assert.Equal(t, 5, requests)
	assert.Equal(t, time.Minute, window)
}

func TestFromCache_NilCache(t *testing.T) {
	f := FromCache(nil, nil)

	assert.False(t, f.Distributed())
	assert.Nil(t, f.Client())
}

func TestFromCache_UsesRedisClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	f := FromCache(clientCache{client: client}, nil)

	require.True(t, f.Distributed())
	assert.Same(t, client, f.Client())

	_, ok := f.PerMinute("auth:signin", 10).(*ratelimit.RedisLimiter)
	assert.True(t, ok)
}

func TestLimiterFactory_InMemoryLimits(t *testing.T) {
	limiter := NewLimiterFactory(nil, nil).New("test", 1, time.Hour)
	defer limiter.Close()

	allowed, err := limiter.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.False(t, allowed)
}
