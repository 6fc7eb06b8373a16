package auth

import (
	"context"
	"sync"
	"time"
)

const revokedTokenKeyPrefix = "auth:revoked:"

// TokenCache is satisfied by config.Cache.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

//go:generate mockgen -source=revocation.go -destination=mock_revocation.go -package=auth

// RevocationStore remembers signed-out token IDs until the token would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NewRevocationStore shares revocations across replicas when a cache is
// available and keeps them in process memory otherwise.
func NewRevocationStore(cache TokenCache) RevocationStore {
	if cache == nil {
		return NewMemoryRevocationStore()
	}
	return &cacheRevocationStore{cache: cache, now: time.Now}
}

type cacheRevocationStore struct {
	cache TokenCache
	now   func() time.Time
}

func (s *cacheRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedTokenKeyPrefix+tokenID, "1", ttl)
}

func (s *cacheRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	value, err := s.cache.Get(ctx, revokedTokenKeyPrefix+tokenID)
	if err != nil {
		return false, err
	}
	return value != "", nil
}

type MemoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !expiresAt.After(now) {
		return nil
	}

	s.revoked[tokenID] = expiresAt
	s.pruneLocked(now)
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !expiresAt.After(s.now()) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryRevocationStore) pruneLocked(now time.Time) {
	for id, expiresAt := range s.revoked {
		if !expiresAt.After(now) {
			delete(s.revoked, id)
		}
	}
}
