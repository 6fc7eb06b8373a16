package auth

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"

	"github.com/akeren/clothiq-api/pkg/mailer"
)

//go:embed templates
var templates embed.FS

const (
	productName       = "ClothIQ"
	resetEmailSubject = "Reset your ClothIQ password"
)

//go:generate mockgen -source=notification.go -destination=mock_notification.go -package=auth

type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string, validFor time.Duration) error
}

type ResetMailer struct {
	sender   mailer.Sender
	from     string
	resetURL string
	timeout  time.Duration
	html     *htmltemplate.Template
	text     *texttemplate.Template
}

func NewResetMailer(sender mailer.Sender, from, resetURL string, timeout time.Duration) (*ResetMailer, error) {
	if sender == nil {
		return nil, mailer.ErrNotConfigured
	}

	if _, err := url.Parse(resetURL); err != nil {
		return nil, fmt.Errorf("invalid reset URL %q: %w", resetURL, err)
	}

	html, err := htmltemplate.ParseFS(templates, "templates/reset.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	text, err := texttemplate.ParseFS(templates, "templates/reset.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	return &ResetMailer{
		sender:   sender,
		from:     from,
		resetURL: resetURL,
		timeout:  timeout,
		html:     html,
		text:     text,
	}, nil
}

func (m *ResetMailer) SendPasswordReset(ctx context.Context, email, token string, validFor time.Duration) error {
	data := map[string]any{
		"Email":    email,
		"Link":     m.resetLink(token),
		"Product":  productName,
		"ValidFor": validFor.String(),
	}

	var htmlBody bytes.Buffer
	if err := m.html.Execute(&htmlBody, data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	var textBody bytes.Buffer
	if err := m.text.Execute(&textBody, data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	sendCtx := context.WithoutCancel(ctx)
	if m.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, m.timeout)
		defer cancel()
	}

	return m.sender.Send(sendCtx, mailer.Message{
		From:    m.from,
		To:      []string{email},
		Subject: resetEmailSubject,
		HTML:    htmlBody.String(),
		Text:    textBody.String(),
	})
}

func (m *ResetMailer) resetLink(token string) string {
	u, err := url.Parse(m.resetURL)
	if err != nil {
		return m.resetURL
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
