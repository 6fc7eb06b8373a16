package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/pkg/ratelimit"
)

const (
	healthCheckTimeout          = 3 * time.Second
	monitoringRequestsPerMinute = 10
)

// NewMonitoringController mounts "/", "/health" and "/health/live" at the root.
// "/health" answers 503 when a critical dependency is down so load balancers
// can use it for readiness.
func NewMonitoringController(checker *healthChecker) *router.RESTController {
	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(rs *router.RouterService, c *router.RESTController) {
			c.RateLimitWith(rs, createMonitoringRateLimiter(rs))

			rs.AddGetHandler(c, nil, "", func(*router.RequestContext) *router.ServiceResult {
				return router.OKResult("ClothIQ API is operational.", "Monitoring successful")
			})
			rs.AddGetHandler(c, nil, "health", healthHandler(checker))
			rs.AddGetHandler(c, nil, "health/live", func(*router.RequestContext) *router.ServiceResult {
				return router.OKResult(map[string]ComponentStatus{"status": StatusUp}, "Alive")
			})
		},
	)
}

func createMonitoringRateLimiter(rs *router.RouterService) ratelimit.Limiter {
	return rs.Limiters().PerMinute("monitoring", monitoringRequestsPerMinute)
}

func healthHandler(checker *healthChecker) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), healthCheckTimeout)
		defer cancel()

		report := checker.run(reqCtx, router.GetLogger(ctx))
		if !report.Healthy() {
			return &router.ServiceResult{
				StatusCode: http.StatusServiceUnavailable,
				Data:       report,
				Message:    "clothiq-api is unhealthy",
			}
		}

		return router.OKResult(report, "clothiq-api health check completed")
	}
}
