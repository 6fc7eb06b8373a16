package ratelimit

import (
	"context"
	"time"

	"github.com/akeren/clothiq-api/pkg/constants"
	"github.com/go-redis/redis/v8"
)

type Logger interface {
	Error(msg string, args ...any)
}

// Limiter decides whether one more request for key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limits() (requests int, window time.Duration)
	Close() error
}

type Config struct {
	Requests int
	Window   time.Duration
	// Redis is optional; without it counters live in process memory.
	Redis *redis.Client
	// Scope namespaces Redis counters so per-route limits do not share a budget.
	Scope  string
	Logger Logger
}

func (c Config) withDefaults() Config {
	if c.Requests <= 0 {
		c.Requests = constants.DefaultRateLimitRequests
	}
	if c.Window <= 0 {
		c.Window = constants.DefaultRateLimitWindow
	}
	if c.Scope == "" {
		c.Scope = "global"
	}
	return c
}

func New(cfg Config) Limiter {
	cfg = cfg.withDefaults()
	if cfg.Redis != nil {
		return newRedisLimiter(cfg)
	}
	return NewMemoryLimiter(cfg.Requests, cfg.Window)
}
