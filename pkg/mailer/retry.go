package mailer

import (
	"context"

	"github.com/akeren/clothiq-api/pkg/retry"
)

var _ Sender = &RetrySender{}

// RetrySender retries provider calls that fail with throttling or network
// errors. Invalid messages are rejected once, before any attempt.
type RetrySender struct {
	next   Sender
	policy retry.RetryPolicy
}

func NewRetrySender(next Sender, cfg *retry.Config) *RetrySender {
	return &RetrySender{next: next, policy: retry.NewExponentialBackoff(cfg)}
}

func (s *RetrySender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	return s.policy.Execute(ctx, func(ctx context.Context) error {
		return s.next.Send(ctx, msg)
	})
}
