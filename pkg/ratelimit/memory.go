package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const anonymousKey = "anonymous"

// MemoryLimiter is a per-key token bucket. Counters are local to the process.
type MemoryLimiter struct {
	requests int
	window   time.Duration
	now      func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	if requests <= 0 {
		requests = 1
	}
	return &MemoryLimiter{
		requests:  requests,
		window:    window,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = anonymousKey
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok {
		every := m.window / time.Duration(m.requests)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), m.requests)}
		m.buckets[key] = b
	}
	b.lastSeen = now

	if now.Sub(m.lastSweep) > m.window {
		m.sweep(now)
	}

	return b.limiter.AllowN(now, 1), nil
}

// sweep drops buckets idle for two windows; a refilled bucket is
// indistinguishable from a new one. Caller holds mu.
func (m *MemoryLimiter) sweep(now time.Time) {
	cutoff := now.Add(-2 * m.window)
	for key, b := range m.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
	m.lastSweep = now
}

func (m *MemoryLimiter) Limits() (int, time.Duration) {
	return m.requests, m.window
}

func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	m.buckets = make(map[string]*bucket)
	m.mu.Unlock()
	return nil
}
