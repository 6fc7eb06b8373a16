package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const keyPrefix = "ratelimit:"

// slidingWindow admits a request when fewer than ARGV[3] members were added
// in the last ARGV[2] milliseconds. Returns 1 when admitted.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
	return 0
end

redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// RedisLimiter shares its counters across every replica using the same Redis.
type RedisLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	scope    string
	logger   Logger
	now      func() time.Time
}

func newRedisLimiter(cfg Config) *RedisLimiter {
	return &RedisLimiter{
		client:   cfg.Redis,
		requests: cfg.Requests,
		window:   cfg.Window,
		scope:    cfg.Scope,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

func (r *RedisLimiter) key(key string) string {
	if key == "" {
		key = anonymousKey
	}
	return keyPrefix + r.scope + ":" + key
}

// Allow returns an error when Redis is unreachable; the caller picks
// between failing open and closed.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	fullKey := r.key(key)
	args := []any{r.now().UnixMilli(), r.window.Milliseconds(), r.requests, uuid.NewString()}

	admitted, err := slidingWindow.Run(ctx, r.client, []string{fullKey}, args...).Int64()
	if err != nil {
		if r.logger != nil {
			r.logger.Error("Rate limit script failed", "key", fullKey, "error", err)
		}
		return false, fmt.Errorf("ratelimit: redis: %w", err)
	}
	return admitted == 1, nil
}

func (r *RedisLimiter) Limits() (int, time.Duration) {
	return r.requests, r.window
}

// Close is a no-op; the Redis client belongs to the cache.
func (r *RedisLimiter) Close() error {
	return nil
}
