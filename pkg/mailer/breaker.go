package mailer

import (
	"context"

	"github.com/akeren/clothiq-api/pkg/circuitbreaker"
)

var _ Sender = &BreakerSender{}

// BreakerSender stops calling a provider that keeps failing until its
// recovery timeout elapses. Calls made while open fail with
// circuitbreaker.ErrCircuitOpen.
type BreakerSender struct {
	next    Sender
	breaker circuitbreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, cfg *circuitbreaker.Config) *BreakerSender {
	return &BreakerSender{
		next:    next,
		breaker: circuitbreaker.NewCircuitBreaker(cfg),
	}
}

func (s *BreakerSender) Send(ctx context.Context, msg Message) error {
	return s.breaker.Call(func() error {
		return s.next.Send(ctx, msg)
	})
}

func (s *BreakerSender) State() circuitbreaker.CircuitState {
	return s.breaker.State()
}
