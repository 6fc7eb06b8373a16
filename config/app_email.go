package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/circuitbreaker"
	"github.com/akeren/clothiq-api/pkg/constants"
	"github.com/akeren/clothiq-api/pkg/mailer"
	"github.com/akeren/clothiq-api/pkg/retry"
	"github.com/akeren/clothiq-api/pkg/utils"
)

const (
	EmailProviderResend = "resend"
	EmailProviderSES    = "ses"
	EmailProviderLog    = "log"

	DefaultEmailFrom = "ClothIQ <onboarding@resend.dev>"
)

type EmailConfig struct {
	Provider     string
	From         string
	ResendAPIKey string
	AWSRegion    string
	SendTimeout  time.Duration
	AppEnv       string
}

func NewEmailConfig() *EmailConfig {
	return &EmailConfig{
		Provider:     strings.ToLower(utils.GetEnvTrimmedOrDefault("EMAIL_PROVIDER", EmailProviderResend)),
		From:         utils.GetEnvTrimmedOrDefault("EMAIL_FROM", DefaultEmailFrom),
		ResendAPIKey: sanitizeEnv(GetValueFromEnvironmentVariable("RESEND_API_KEY", "")),
		AWSRegion:    utils.GetEnvTrimmed("AWS_REGION"),
		SendTimeout:  utils.GetEnvDuration("EMAIL_SEND_TIMEOUT", constants.DefaultEmailSendTimeout),
		AppEnv:       GetAppEnv(),
	}
}

// NewSender builds the configured provider wrapped in a circuit breaker.
// A missing credential yields an error wrapping mailer.ErrNotConfigured.
func (ec *EmailConfig) NewSender(ctx context.Context, logger *log.Logger) (mailer.Sender, error) {
	var (
		sender mailer.Sender
		err    error
	)

	switch ec.Provider {
	case EmailProviderResend:
		sender, err = mailer.NewResendSender(ec.ResendAPIKey, logger)
	case EmailProviderSES:
		sender, err = mailer.NewSESSender(ctx, ec.AWSRegion, logger)
	case EmailProviderLog:
		if !IsDevelopmentEnv(ec.AppEnv) {
			return nil, fmt.Errorf("EMAIL_PROVIDER=log is not allowed when %s=%q: %w", AppEnvKey, ec.AppEnv, mailer.ErrNotConfigured)
		}
		sender = mailer.NewLogSender(logger)
	default:
		return nil, fmt.Errorf("unsupported EMAIL_PROVIDER %q: %w", ec.Provider, mailer.ErrNotConfigured)
	}

	if err != nil {
		logger.Error("Email sender configuration is invalid", "provider", ec.Provider, "error", err)
		return nil, err
	}

	logger.Info("Email sender configured", "provider", ec.Provider, "from", ec.From)

	breaker := circuitbreaker.DefaultConfig()
	breaker.Name = "email:" + ec.Provider
	breaker.OnStateChange = func(name string, from, to circuitbreaker.CircuitState) {
		logger.Warn("Email circuit breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
	}

	// Retries happen inside the breaker so one exhausted send counts as one failure.
	return mailer.NewBreakerSender(mailer.NewRetrySender(sender, emailRetryConfig()), breaker), nil
}

func emailRetryConfig() *retry.Config {
	return &retry.Config{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2.0,
	}
}

// NewSenderOrNil logs and returns nil instead of failing startup: the
// waitlist reports the misconfiguration per request.
func (ec *EmailConfig) NewSenderOrNil(ctx context.Context, logger *log.Logger) mailer.Sender {
	sender, err := ec.NewSender(ctx, logger)
	if err != nil {
		logger.Error("Email notifications are unavailable", "provider", ec.Provider, "error", err)
		return nil
	}

	return sender
}
