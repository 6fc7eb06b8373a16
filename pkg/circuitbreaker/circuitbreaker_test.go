package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type transition struct {
	from, to CircuitState
}

func newTestBreaker(cfg *Config) (*circuitBreaker, *time.Time, *[]transition) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var seen []transition
	cfg.OnStateChange = func(_ string, from, to CircuitState) {
		seen = append(seen, transition{from, to})
	}

	cb := NewCircuitBreaker(cfg).(*circuitBreaker)
	cb.now = func() time.Time { return clock }
	return cb, &clock, &seen
}

var errProvider = errors.New("provider down")

func fail() error    { return errProvider }
func succeed() error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _, seen := newTestBreaker(&Config{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 1})

	assert.ErrorIs(t, cb.Call(fail), errProvider)
	assert.Equal(t, Closed, cb.State())
	assert.ErrorIs(t, cb.Call(fail), errProvider)
	assert.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, []transition{{Closed, Open}}, *seen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _, _ := newTestBreaker(&Config{FailureThreshold: 2, RecoveryTimeout: time.Minute, SuccessThreshold: 1})

	_ = cb.Call(fail)
	_ = cb.Call(succeed)
	_ = cb.Call(fail)

	assert.Equal(t, Closed, cb.State())
	assert.Equal(t, 1, cb.Snapshot().Failures)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb, clock, seen := newTestBreaker(&Config{Name: "email", FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 2})

	_ = cb.Call(fail)
	*clock = clock.Add(time.Minute)

	assert.NoError(t, cb.Call(succeed))
	assert.Equal(t, HalfOpen, cb.State())
	assert.NoError(t, cb.Call(succeed))
	assert.Equal(t, Closed, cb.State())

	assert.Equal(t, []transition{{Closed, Open}, {Open, HalfOpen}, {HalfOpen, Closed}}, *seen)
	assert.Equal(t, "email", cb.Snapshot().Name)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock, _ := newTestBreaker(&Config{FailureThreshold: 1, RecoveryTimeout: time.Minute, SuccessThreshold: 1})

	_ = cb.Call(fail)
	*clock = clock.Add(2 * time.Minute)
	_ = cb.Call(fail)

	snap := cb.Snapshot()
	assert.Equal(t, Open, snap.State)
	assert.Equal(t, clock.Add(time.Minute), snap.NextAttempt)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _, _ := newTestBreaker(&Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, SuccessThreshold: 1})
	_ = cb.Call(fail)

	cb.Reset()

	assert.Equal(t, Closed, cb.State())
	assert.NoError(t, cb.Call(succeed))
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half_open", HalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}
