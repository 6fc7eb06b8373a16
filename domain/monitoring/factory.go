package monitoring

import (
	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/pkg/mailer"
	"gorm.io/gorm"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	db          *gorm.DB
	cache       Cache
	emailSender mailer.Sender
}

// A nil cache or sender is reported as "disabled", not as a failure.
func NewMonitoringControllerFactory(db *gorm.DB, cache Cache, emailSender mailer.Sender) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{db: db, cache: cache, emailSender: emailSender}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(newHealthChecker(
		databaseProbe(f.db),
		cacheProbe(f.cache),
		emailProbe(f.emailSender),
	))
}
