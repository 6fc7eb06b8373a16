package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/constants"
	"github.com/akeren/clothiq-api/pkg/factory"
	"github.com/akeren/clothiq-api/pkg/ratelimit"
	"github.com/akeren/clothiq-api/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const defaultPort = "8080"

type Cache interface {
	Ping(ctx context.Context) error
}

type RouterService struct {
	engine          *gin.Engine
	server          *http.Server
	logger          *log.Logger
	config          RouterConfig
	rateLimiter     ratelimit.Limiter
	limiters        *factory.LimiterFactory
	metricsRegistry *prometheus.Registry
	allowedOrigins  map[string]struct{}
	allowAnyOrigin  bool

	handlerToControllerMap map[string]*RESTController
	rateLimitOverrides     map[string]ratelimit.Limiter
}

func applyRouterDefaults(cfg RouterConfig) RouterConfig {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = constants.DefaultMaxRequestBodyBytes
	}
	if cfg.HSTS.MaxAge <= 0 {
		cfg.HSTS.MaxAge = constants.DefaultHSTSMaxAgeSeconds
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = constants.DefaultRequestTimeout
	}
	return cfg
}

func CreateRouterService(logger *log.Logger, cache Cache, routerConfig *RouterConfig) *RouterService {
	if routerConfig == nil {
		routerConfig = &RouterConfig{}
	}
	cfg := applyRouterDefaults(*routerConfig)

	if cfg.GinMode != "" {
		logger.Info("Setting Gin mode", "mode", cfg.GinMode)
		gin.SetMode(cfg.GinMode)
	}

	ginRouter := gin.New()
	ginRouter.Use(gin.Recovery())

	if utils.IsTracingEnabled() {
		ginRouter.Use(otelgin.Middleware(utils.OTelServiceName()))
		logger.Info("Tracing middleware enabled")
	}

	// SECURITY: gin trusts every proxy by default, which lets X-Forwarded-For
	// spoof ClientIP() and with it every per-IP rate limit.
	if err := ginRouter.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Error("Invalid trusted proxies; disabling", "error", err)
		_ = ginRouter.SetTrustedProxies(nil)
	} else if cfg.TrustedProxies == nil {
		logger.Info("Trusted proxies disabled (TRUSTED_PROXIES not set)")
	}

	rs := &RouterService{
		engine:                 ginRouter,
		logger:                 logger,
		config:                 cfg,
		limiters:               factory.FromCache(cache, logger),
		rateLimitOverrides:     make(map[string]ratelimit.Limiter),
		handlerToControllerMap: make(map[string]*RESTController),
	}
	rs.initCORS()
	rs.initRateLimiting()
	rs.mountMetrics()

	ginRouter.Use(rs.securityHeadersMiddleware())
	ginRouter.Use(rs.maxBodySizeMiddleware())
	ginRouter.Use(rs.corsMiddleware())
	ginRouter.Use(rs.rateLimitMiddleware())
	ginRouter.Use(rs.timeoutMiddleware())
	ginRouter.Use(rs.correlationIDMiddleware())
	ginRouter.Use(rs.loggerInjectionMiddleware())
	ginRouter.Use(rs.requestLoggingMiddleware())

	ginRouter.HandleMethodNotAllowed = true
	ginRouter.RedirectTrailingSlash = true

	ginRouter.NoRoute(func(c *gin.Context) {
		logger.WithCorrelationID(c.Request.Context()).Warn("Route not found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, NotFoundResult("Route not found").ToJSON())
	})

	ginRouter.NoMethod(func(c *gin.Context) {
		logger.WithCorrelationID(c.Request.Context()).Warn("Method not allowed", "method", c.Request.Method, "path", c.Request.URL.Path)
		c.JSON(http.StatusMethodNotAllowed, ErrorResult(http.StatusMethodNotAllowed, "Method not allowed", nil).ToJSON())
	})

	// Server timeouts bound handlers; gin.Context is not safe to hand to a
	// second goroutine, so the timeout middleware only annotates the context.
	rs.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           ginRouter,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router service initialized", "addr", rs.server.Addr)
	return rs
}

func (routerService *RouterService) initRateLimiting() {
	cfg := routerService.config

	if client := routerService.limiters.Client(); client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			routerService.logger.Warn("Failed to connect to Redis for rate limiting, falling back to in-memory", "error", err)
			routerService.limiters = factory.NewLimiterFactory(nil, routerService.logger)
		}
	}

	routerService.rateLimiter = routerService.limiters.New("global", cfg.RateLimitRequests, cfg.RateLimitWindow)

	backend := "in-memory"
	if routerService.limiters.Distributed() {
		backend = "redis"
	}
	routerService.logger.Info("Rate limiting initialized",
		"backend", backend,
		"requests", cfg.RateLimitRequests,
		"window", cfg.RateLimitWindow)
}

// Limiters builds per-controller and per-handler limiters on the same
// backend as the global one.
func (routerService *RouterService) Limiters() *factory.LimiterFactory {
	return routerService.limiters
}

func (routerService *RouterService) GetEngine() *gin.Engine {
	return routerService.engine
}

func (routerService *RouterService) GetLogger(c *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(c.Request.Context(), routerService.logger)
}

func (routerService *RouterService) Cleanup() {
	if routerService.rateLimiter != nil {
		if err := routerService.rateLimiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "error", err)
		}
	}
	for key, limiter := range routerService.rateLimitOverrides {
		if err := limiter.Close(); err != nil {
			routerService.logger.Error("Failed to close rate limiter", "key", key, "error", err)
		}
	}
	routerService.logger.Info("Router service cleanup completed")
}

func (routerService *RouterService) MountController(controller *RESTController) {
	controller.prepare(routerService, controller)

	routerService.logger.Info("Controller mounted",
		"name", controller.name,
		"path", controller.mountPoint,
		"version", controller.version,
		"handlers", controller.handlerCount,
	)
}

func (routerService *RouterService) RunHTTPServer() error {
	routerService.logger.Info("Starting HTTP server", "addr", routerService.server.Addr)

	if err := routerService.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		routerService.logger.Error("Failed to start HTTP server", "error", err)
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

func (routerService *RouterService) Shutdown(ctx context.Context) error {
	routerService.logger.Info("Shutting down HTTP server gracefully...")
	return routerService.server.Shutdown(ctx)
}
