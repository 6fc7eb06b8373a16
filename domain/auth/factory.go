package auth

import (
	"time"

	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/mailer"
	"gorm.io/gorm"
)

type AuthServiceFactory interface {
	CreateService() AuthService
	CreateController() *router.RESTController
}

type FactoryConfig struct {
	JWTSecret     string
	Issuer        string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
	ResetURL      string
	// Sender is nil when no email provider is configured.
	Sender      mailer.Sender
	From        string
	SendTimeout time.Duration
	Cache       TokenCache
}

type DefaultAuthServiceFactory struct {
	db     *gorm.DB
	logger *log.Logger
	cfg    FactoryConfig
}

func NewAuthServiceFactory(db *gorm.DB, logger *log.Logger, cfg FactoryConfig) AuthServiceFactory {
	return &DefaultAuthServiceFactory{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

func (f *DefaultAuthServiceFactory) CreateService() AuthService {
	return NewAuthService(
		f.logger,
		NewAuthRepository(f.db),
		NewTokenIssuer(f.cfg.JWTSecret, f.cfg.Issuer, f.cfg.TokenTTL),
		NewRevocationStore(f.cfg.Cache),
		f.createNotifier(),
		ServiceConfig{ResetTokenTTL: f.cfg.ResetTokenTTL},
	)
}

func (f *DefaultAuthServiceFactory) CreateController() *router.RESTController {
	return NewAuthController(f.CreateService())
}

func (f *DefaultAuthServiceFactory) createNotifier() ResetNotifier {
	if f.cfg.Sender == nil {
		f.logger.Warn("Password reset emails disabled: no email sender configured")
		return nil
	}

	notifier, err := NewResetMailer(f.cfg.Sender, f.cfg.From, f.cfg.ResetURL, f.cfg.SendTimeout)
	if err != nil {
		f.logger.Error("Failed to initialise password reset mailer", "error", err)
		return nil
	}

	return notifier
}
