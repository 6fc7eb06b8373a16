package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

var _ Sender = &ResendSender{}

type resendEmails interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendSender struct {
	emails resendEmails
	logger Logger
}

func NewResendSender(apiKey string, logger Logger) (*ResendSender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("resend: %w", ErrNotConfigured)
	}

	client := resend.NewClient(apiKey)
	return &ResendSender{emails: client.Emails, logger: logger}, nil
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	sent, err := s.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("resend: send email: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Email sent", "provider", "resend", "id", sent.Id)
	}
	return nil
}
