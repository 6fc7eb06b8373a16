package router

import (
	"time"

	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

type MiddlewareFunc = gin.HandlerFunc

type HandlerFunction func(*RequestContext) *ServiceResult

// RouterConfig carries every HTTP setting the router needs; the config
// package fills it from the environment.
type RouterConfig struct {
	Port    string
	GinMode string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration

	// TrustedProxies nil means ClientIP() uses RemoteAddr only.
	TrustedProxies []string
	// AllowedOrigins empty denies every cross-origin request. "*" allows any.
	AllowedOrigins []string
	MaxBodyBytes   int64
	HSTS           HSTSConfig
	DisableMetrics bool
}

type HSTSConfig struct {
	Enabled           bool
	MaxAge            int64
	IncludeSubdomains bool
}

type ServiceResult struct {
	StatusCode int    `json:"code"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
}

type RateLimitResponse struct {
	Limit      int    `json:"limit"`
	Window     string `json:"window"`
	RetryAfter string `json:"retry_after"`
}

type RESTController struct {
	name         string
	mountPoint   string
	version      string
	handlerCount int
	prepare      func(*RouterService, *RESTController)
}

func (result *ServiceResult) ToJSON() gin.H {
	body := gin.H{
		"code":    result.StatusCode,
		"data":    result.Data,
		"message": result.Message,
	}

	// Browser clients read failures from "error".
	if result.IsError() {
		body["error"] = result.Message
	}

	return body
}

func (result *ServiceResult) IsError() bool {
	return result.StatusCode >= 400
}
