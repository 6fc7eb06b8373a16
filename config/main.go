package config

import (
	"context"
	"time"

	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/internal/models"
	"github.com/akeren/clothiq-api/pkg/constants"
	"github.com/akeren/clothiq-api/pkg/mailer"
	"github.com/akeren/clothiq-api/pkg/utils"
	"gorm.io/gorm"
)

type ApplicationConfig struct {
	DB              *gorm.DB
	RouterService   *router.RouterService
	Logger          *log.Logger
	Cache           Cache
	Config          *AppConfig
	EmailConfig     *EmailConfig
	AuthConfig      *AuthConfig
	EmailSender     mailer.Sender // nil when the provider is not configured
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	Port              string
	GinMode           string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	TrustedProxies    []string
	AllowedOrigins    []string
	MaxBodyBytes      int64
	MetricsEnabled    bool
	HSTSEnabled       bool
	HSTSMaxAge        int64
	HSTSSubdomains    bool
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		Port:              utils.GetEnvTrimmedOrDefault("APP_PORT", "8080"),
		GinMode:           utils.GetEnvTrimmed("GIN_MODE"),
		RateLimitRequests: utils.GetEnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
		RateLimitWindow:   utils.GetEnvDuration("RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow),
		RequestTimeout:    utils.GetEnvDuration("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
		TrustedProxies:    parseTrustedProxies(utils.GetEnvList("TRUSTED_PROXIES")),
		AllowedOrigins:    utils.GetEnvList("CORS_ALLOWED_ORIGIN"),
		MaxBodyBytes:      utils.GetEnvPositiveInt64("MAX_REQUEST_BODY_BYTES", constants.DefaultMaxRequestBodyBytes),
		MetricsEnabled:    utils.GetEnvBool("METRICS_ENABLED", true),
		HSTSEnabled:       utils.GetEnvBool("HSTS_ENABLED", IsProductionEnv(GetAppEnv())),
		HSTSMaxAge:        utils.GetEnvPositiveInt64("HSTS_MAX_AGE", constants.DefaultHSTSMaxAgeSeconds),
		HSTSSubdomains:    utils.GetEnvBool("HSTS_INCLUDE_SUBDOMAINS", true),
	}
}

// parseTrustedProxies maps "*" to every address, for local setups behind
// an ad-hoc proxy.
func parseTrustedProxies(proxies []string) []string {
	for _, p := range proxies {
		if p == "*" {
			return []string{"0.0.0.0/0", "::/0"}
		}
	}
	return proxies
}

func (ac *AppConfig) RouterConfig() *router.RouterConfig {
	return &router.RouterConfig{
		Port:              ac.Port,
		GinMode:           ac.GinMode,
		RateLimitRequests: ac.RateLimitRequests,
		RateLimitWindow:   ac.RateLimitWindow,
		RequestTimeout:    ac.RequestTimeout,
		TrustedProxies:    ac.TrustedProxies,
		AllowedOrigins:    ac.AllowedOrigins,
		MaxBodyBytes:      ac.MaxBodyBytes,
		DisableMetrics:    !ac.MetricsEnabled,
		HSTS: router.HSTSConfig{
			Enabled:           ac.HSTSEnabled,
			MaxAge:            ac.HSTSMaxAge,
			IncludeSubdomains: ac.HSTSSubdomains,
		},
	}
}

// Cleanup releases resources in reverse start order; tracing goes last so
// spans from shutdown itself are flushed.
func (ac *ApplicationConfig) Cleanup() {
	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	CloseCache(ac.Cache, ac.Logger)
	CloseDatabase(ac.DB, ac.Logger)
	shutdownTracing(ac.TracingShutdown, ac.Logger)

	ac.Logger.Info("Application cleanup completed")
}

func shutdownTracing(shutdown func(context.Context) error, logger *log.Logger) {
	if shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown tracer provider", "error", err)
	}
}

func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	InitializeEnvFile(logger)

	if autoMigrate {
		appEnv := GetAppEnv()
		if err := ValidateAutoMigrateAllowed(appEnv); err != nil {
			return nil, err
		}
		if appEnv == "" {
			logger.Warn("APP_ENV not set; allowing --auto-migrate as development")
		}
	}

	tracingShutdown, err := SetupTracing(logger, NewTracingConfig())
	if err != nil {
		return nil, err
	}

	db, err := NewDatabase(logger, NewDBConfig())
	if err != nil {
		shutdownTracing(tracingShutdown, logger)
		return nil, err
	}

	if autoMigrate {
		if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
			CloseDatabase(db, logger)
			shutdownTracing(tracingShutdown, logger)
			return nil, err
		}
	}

	appConfig := NewAppConfig()
	cache := NewCacheConfig().NewCacheOrNil(logger)

	emailConfig := NewEmailConfig()
	emailSender := emailConfig.NewSenderOrNil(context.Background(), logger)

	authConfig := NewAuthConfig()
	if !authConfig.IsConfigured() {
		logger.Warn("AUTH_JWT_SECRET missing or shorter than 32 bytes; auth endpoints will not be mounted")
	}

	routerService := router.CreateRouterService(logger, cache, appConfig.RouterConfig())

	logger.Info("Application configuration loaded successfully")

	return &ApplicationConfig{
		DB:              db,
		RouterService:   routerService,
		Logger:          logger,
		Cache:           cache,
		Config:          appConfig,
		EmailConfig:     emailConfig,
		AuthConfig:      authConfig,
		EmailSender:     emailSender,
		TracingShutdown: tracingShutdown,
	}, nil
}
