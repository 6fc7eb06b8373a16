package domain

import (
	"github.com/akeren/clothiq-api/config"
	"github.com/akeren/clothiq-api/domain/auth"
	"github.com/akeren/clothiq-api/domain/monitoring"
	"github.com/akeren/clothiq-api/domain/waitlist"
)

func SetupCoreDomain(appConfig *config.ApplicationConfig) {
	routerService := appConfig.RouterService

	emailConfig := appConfig.EmailConfig
	if emailConfig == nil {
		emailConfig = config.NewEmailConfig()
	}

	cache := appConfig.Cache

	routerService.MountController(
		monitoring.NewMonitoringControllerFactory(appConfig.DB, cache, appConfig.EmailSender).CreateController(),
	)

	routerService.MountController(
		waitlist.NewWaitlistServiceFactory(appConfig.DB, appConfig.Logger, waitlist.FactoryConfig{
			Sender:      appConfig.EmailSender,
			From:        emailConfig.From,
			SendTimeout: emailConfig.SendTimeout,
			Cache:       cache,
			Registerer:  routerService.MetricsRegisterer(),
		}).CreateController(),
	)

	authConfig := appConfig.AuthConfig
	if authConfig == nil || !authConfig.IsConfigured() {
		appConfig.Logger.Warn("Auth routes not mounted: AUTH_JWT_SECRET is not configured")
		return
	}

	routerService.MountController(
		auth.NewAuthServiceFactory(appConfig.DB, appConfig.Logger, auth.FactoryConfig{
			JWTSecret:     authConfig.JWTSecret,
			Issuer:        authConfig.Issuer,
			TokenTTL:      authConfig.TokenTTL,
			ResetTokenTTL: authConfig.ResetTokenTTL,
			ResetURL:      authConfig.ResetURL,
			Sender:        appConfig.EmailSender,
			From:          emailConfig.From,
			SendTimeout:   emailConfig.SendTimeout,
			Cache:         cache,
		}).CreateController(),
	)
}
