package factory

import (
	"time"

	"github.com/akeren/clothiq-api/pkg/ratelimit"
	"github.com/go-redis/redis/v8"
)

type RedisClientProvider interface {
	GetClient() *redis.Client
}

// LimiterFactory hands out rate limiters that share one Redis backend when
// there is one. A nil client yields in-memory limiters.
type LimiterFactory struct {
	client *redis.Client
	logger ratelimit.Logger
}

func NewLimiterFactory(client *redis.Client, logger ratelimit.Logger) *LimiterFactory {
	return &LimiterFactory{client: client, logger: logger}
}

// FromCache uses the cache's Redis client when it exposes one.
func FromCache(cache any, logger ratelimit.Logger) *LimiterFactory {
	var client *redis.Client
	if provider, ok := cache.(RedisClientProvider); ok {
		client = provider.GetClient()
	}
	return NewLimiterFactory(client, logger)
}

func (f *LimiterFactory) Client() *redis.Client {
	return f.client
}

func (f *LimiterFactory) Distributed() bool {
	return f.client != nil
}

func (f *LimiterFactory) New(scope string, requests int, window time.Duration) ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		Requests: requests,
		Window:   window,
		Redis:    f.client,
		Scope:    scope,
		Logger:   f.logger,
	})
}

// PerMinute is shorthand for the common per-route budgets.
func (f *LimiterFactory) PerMinute(scope string, requests int) ratelimit.Limiter {
	return f.New(scope, requests, time.Minute)
}
