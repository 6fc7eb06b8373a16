package waitlist

import (
	"time"

	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/mailer"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type FactoryConfig struct {
	// Sender is nil when no email provider is configured.
	Sender      mailer.Sender
	From        string
	SendTimeout time.Duration
	Cache       CountCache
	Registerer  prometheus.Registerer
}

type DefaultWaitlistServiceFactory struct {
	db     *gorm.DB
	logger *log.Logger
	cfg    FactoryConfig
}

func NewWaitlistServiceFactory(db *gorm.DB, logger *log.Logger, cfg FactoryConfig) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	repository := NewWaitlistRepository(f.db)
	return NewWaitlistService(f.logger, repository, f.createNotifier(), f.cfg.Cache, NewMetrics(f.cfg.Registerer))
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService())
}

// createNotifier returns an untyped nil so the service sees "not configured".
func (f *DefaultWaitlistServiceFactory) createNotifier() Notifier {
	if f.cfg.Sender == nil {
		f.logger.Warn("Waitlist welcome emails disabled: no email sender configured")
		return nil
	}

	notifier, err := NewWelcomeNotifier(f.cfg.Sender, f.cfg.From, f.cfg.SendTimeout)
	if err != nil {
		f.logger.Error("Failed to initialise welcome notifier", "error", err)
		return nil
	}

	return notifier
}
