package waitlist

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/akeren/clothiq-api/pkg/mailer"
)

//go:embed templates
var templates embed.FS

const (
	productName         = "ClothIQ"
	welcomeEmailSubject = "Welcome to ClothIQ Early Access!"
)

//go:generate mockgen -source=notification.go -destination=mock_notification.go -package=waitlist

// Notifier delivers the welcome email for a newly stored entry.
type Notifier interface {
	SendWelcome(ctx context.Context, email string) error
}

type WelcomeNotifier struct {
	sender  mailer.Sender
	from    string
	timeout time.Duration
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func NewWelcomeNotifier(sender mailer.Sender, from string, timeout time.Duration) (*WelcomeNotifier, error) {
	if sender == nil {
		return nil, mailer.ErrNotConfigured
	}

	html, err := htmltemplate.ParseFS(templates, "templates/welcome.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	text, err := texttemplate.ParseFS(templates, "templates/welcome.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	return &WelcomeNotifier{
		sender:  sender,
		from:    from,
		timeout: timeout,
		html:    html,
		text:    text,
	}, nil
}

// SendWelcome runs on a context detached from the request so a client
// disconnect after persistence does not cancel delivery.
func (n *WelcomeNotifier) SendWelcome(ctx context.Context, email string) error {
	msg, err := n.welcomeMessage(email)
	if err != nil {
		return err
	}

	sendCtx := context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, n.timeout)
		defer cancel()
	}

	return n.sender.Send(sendCtx, msg)
}

func (n *WelcomeNotifier) welcomeMessage(email string) (mailer.Message, error) {
	data := map[string]any{
		"Email":   email,
		"Product": productName,
	}

	var htmlBody bytes.Buffer
	if err := n.html.Execute(&htmlBody, data); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to execute email template: %w", err)
	}

	var textBody bytes.Buffer
	if err := n.text.Execute(&textBody, data); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to execute email template: %w", err)
	}

	return mailer.Message{
		From:    n.from,
		To:      []string{email},
		Subject: welcomeEmailSubject,
		HTML:    htmlBody.String(),
		Text:    textBody.String(),
	}, nil
}
