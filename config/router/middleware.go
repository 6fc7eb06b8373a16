package router

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

const (
	correlationIDHeader    = "X-Correlation-ID"
	requestIDHeader        = "X-Request-ID"
	maxCorrelationIDLength = 128
)

// validCorrelationID rejects client-supplied IDs that could break log lines.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func (routerService *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationIDHeader)
		if id == "" {
			id = c.GetHeader(requestIDHeader)
		}
		if !validCorrelationID(id) {
			id = log.GenerateCorrelationID()
		}

		c.Request = c.Request.WithContext(log.ContextWithCorrelationID(c.Request.Context(), id))
		c.Header(correlationIDHeader, id)
		c.Next()
	}
}

func (routerService *RouterService) loggerInjectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlatedLogger := routerService.logger.WithCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(log.ContextWithLogger(c.Request.Context(), correlatedLogger))
		c.Next()
	}
}

func (routerService *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		logger := GetLogger(c)
		logFn := logger.Info
		switch {
		case status >= http.StatusInternalServerError:
			logFn = logger.Error
		case status >= http.StatusBadRequest:
			logFn = logger.Warn
		}

		logFn("HTTP request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", c.ClientIP(),
		)
	}
}

func (routerService *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	hsts := routerService.config.HSTS
	hstsValue := "max-age=" + strconv.FormatInt(hsts.MaxAge, 10)
	if hsts.IncludeSubdomains {
		hstsValue += "; includeSubDomains"
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if hsts.Enabled && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}

// isHTTPS also honours TLS terminated at a reverse proxy.
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https")
}

func (routerService *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	maxBytes := routerService.config.MaxBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResult(
				http.StatusRequestEntityTooLarge,
				"Request payload too large",
				nil,
			).ToJSON())
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func (routerService *RouterService) initCORS() {
	routerService.allowedOrigins = make(map[string]struct{}, len(routerService.config.AllowedOrigins))
	for _, origin := range routerService.config.AllowedOrigins {
		if origin == "*" {
			routerService.allowAnyOrigin = true
			continue
		}
		routerService.allowedOrigins[origin] = struct{}{}
	}

	if !routerService.allowAnyOrigin && len(routerService.allowedOrigins) == 0 {
		routerService.logger.Warn("CORS_ALLOWED_ORIGIN not set; cross-origin requests will be denied")
	}
}

func (routerService *RouterService) originAllowed(origin string) bool {
	if routerService.allowAnyOrigin {
		return true
	}
	_, ok := routerService.allowedOrigins[origin]
	return ok
}

func (routerService *RouterService) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !routerService.originAllowed(origin) {
			routerService.logger.Debug("CORS origin not allowed", "origin", origin)
			c.Next()
			return
		}

		h := c.Writer.Header()
		if routerService.allowAnyOrigin {
			// A wildcard never carries credentials.
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, Origin, Cache-Control, X-Requested-With, "+correlationIDHeader)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Expose-Headers", correlationIDHeader+", Retry-After, X-RateLimit-Limit")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (routerService *RouterService) timeoutMiddleware() gin.HandlerFunc {
	timeout := routerService.config.RequestTimeout

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// Never run c.Next() in a goroutine; gin.Context is not safe for
		// concurrent use. Mid-flight enforcement is left to the server timeouts.
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			routerService.logger.WithCorrelationID(c.Request.Context()).Warn("Request timeout detected")
			c.AbortWithStatusJSON(http.StatusRequestTimeout, ErrorResult(
				http.StatusRequestTimeout,
				"Request timeout",
				nil,
			).ToJSON())
		}
	}
}

// limiterFor resolves the limiter for a route: handler override first, then
// the controller's, then the global one.
func (routerService *RouterService) limiterFor(controller *RESTController, handlerKey string) ratelimit.Limiter {
	if limiter, ok := routerService.rateLimitOverrides[handlerKey]; ok {
		return limiter
	}
	if limiter, ok := routerService.rateLimitOverrides[controller.mountPoint]; ok {
		return limiter
	}
	return routerService.rateLimiter
}

func setRateLimitHeaders(c *gin.Context, limit int, window time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Window", window.String())
}

func (routerService *RouterService) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Unknown routes fall through to NoRoute/NoMethod.
		if c.FullPath() == "" {
			c.Next()
			return
		}

		handlerKey := routeKey(c.FullPath(), c.Request.Method)
		controller, found := routerService.handlerToControllerMap[handlerKey]
		if !found {
			// Routes registered straight on the engine, such as /metrics.
			c.Next()
			return
		}

		limiter := routerService.limiterFor(controller, handlerKey)
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		limit, window := limiter.Limits()
		setRateLimitHeaders(c, limit, window)

		allowed, err := limiter.Allow(c.Request.Context(), clientIP)
		if err != nil {
			// Fail open: a broken limiter backend must not take the API down.
			routerService.logger.Error("Rate limiter error", "error", err, "client_ip", clientIP)
			c.Next()
			return
		}

		if !allowed {
			retryAfter := int(math.Ceil(window.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			routerService.logger.Warn("Rate limit exceeded", "client_ip", clientIP, "route", c.FullPath())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
				Limit:      limit,
				Window:     window.String(),
				RetryAfter: strconv.Itoa(retryAfter),
			}).ToJSON())
			return
		}

		c.Next()
	}
}
