package waitlist

import (
	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/pkg/ratelimit"
)

const waitlistSubmissionsPerMinute = 30

func NewWaitlistController(service WaitlistService) *router.RESTController {
	return router.NewVersionedRESTController(
		"WaitlistController",
		"v1",
		"/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			submissionLimiter := createWaitlistSubmissionRateLimiter(rs)

			rs.AddPostHandler(c, submissionLimiter, "", submitWaitlistEntryHandler(service))
			rs.AddGetHandler(c, nil, "/count", getWaitlistCountHandler(service))
		},
	)
}

// Redis-backed when available so the limit holds across replicas.
func createWaitlistSubmissionRateLimiter(rs *router.RouterService) ratelimit.Limiter {
	return rs.Limiters().PerMinute("waitlist", waitlistSubmissionsPerMinute)
}

func submitWaitlistEntryHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req SubmitWaitlistRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		result, err := service.Submit(ctx.Request.Context(), req.Email, req.Honeypot)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(ToSubmitWaitlistResponse(result), result.Message())
	}
}

func getWaitlistCountHandler(service WaitlistService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		response, err := service.Count(ctx.Request.Context())
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(response, "Waitlist count retrieved successfully")
	}
}
