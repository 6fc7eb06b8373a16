package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned when a provider is selected without the
// credentials it needs.
var ErrNotConfigured = errors.New("email provider is not configured")

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Message is a single outbound email. At least one of HTML or Text must be set.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.From) == "" {
		return fmt.Errorf("mailer: missing sender address")
	}
	if len(m.To) == 0 {
		return fmt.Errorf("mailer: missing recipient")
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("mailer: message has no body")
	}
	return nil
}

//go:generate mockgen -source=mailer.go -destination=mock_sender.go -package=mailer

// Sender delivers a message through an email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
