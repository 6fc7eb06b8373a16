package config

import (
	"context"
	"errors"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	pkgredis "github.com/akeren/clothiq-api/pkg/redis"
	"github.com/akeren/clothiq-api/pkg/utils"
)

var ErrCacheNotConfigured = errors.New("cache host is not configured")

// Cache backs the waitlist count, revoked sessions and, through the Redis
// client, distributed rate limiting.
type Cache interface {
	// Get returns ("", nil) when a key is not found.
	Get(ctx context.Context, key string) (string, error)
	// Set uses ttl=0 for no expiry.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type CacheConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		Host:     utils.GetEnvTrimmed("REDIS_HOST"),
		Port:     utils.GetEnvTrimmedOrDefault("REDIS_PORT", "6379"),
		Password: sanitizeEnv(GetValueFromEnvironmentVariable("REDIS_PASSWORD", "")),
		DB:       utils.GetEnvPositiveInt("REDIS_DB", 0),
	}
}

func (cc *CacheConfig) IsConfigured() bool {
	return cc.Host != ""
}

func (cc *CacheConfig) NewCache(logger *log.Logger) (Cache, error) {
	if !cc.IsConfigured() {
		return nil, ErrCacheNotConfigured
	}

	cache, err := pkgredis.NewRedisCache(&pkgredis.Config{
		Host:     cc.Host,
		Port:     cc.Port,
		Password: cc.Password,
		DB:       cc.DB,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Cache (Redis) connected", "addr", cache.Addr(), "db", cc.DB)
	return cache, nil
}

// NewCacheOrNil never fails startup: without Redis the count is read from
// the database each time, revocations stay in process memory and rate
// limits fall back to in-memory buckets.
func (cc *CacheConfig) NewCacheOrNil(logger *log.Logger) Cache {
	if !cc.IsConfigured() {
		logger.Info("Cache (Redis) is not configured; proceeding without external cache")
		return nil
	}

	cache, err := cc.NewCache(logger)
	if err != nil {
		logger.Error("Failed to connect to Cache (Redis); proceeding without it", "error", err)
		return nil
	}

	return cache
}

func CloseCache(cache Cache, logger *log.Logger) {
	if cache == nil {
		return
	}

	if err := cache.Close(); err != nil {
		logger.Error("Failed to close cache", "error", err)
		return
	}

	logger.Info("Cache connection closed")
}
