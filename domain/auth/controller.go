package auth

import (
	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/pkg/ratelimit"
)

const credentialAttemptsPerMinute = 10

func NewAuthController(service AuthService) *router.RESTController {
	return router.NewVersionedRESTController(
		"AuthController",
		"v1",
		"/auth",
		func(rs *router.RouterService, c *router.RESTController) {
			limiter := func(scope string) ratelimit.Limiter {
				return rs.Limiters().PerMinute("auth:"+scope, credentialAttemptsPerMinute)
			}

			rs.AddPostHandler(c, limiter("signup"), "/signup", signUpHandler(service))
			rs.AddPostHandler(c, limiter("signin"), "/signin", signInHandler(service))
			rs.AddPostHandler(c, nil, "/signout", signOutHandler(service))
			rs.AddGetHandler(c, nil, "/me", currentUserHandler(service))
			rs.AddPostHandler(c, limiter("reset"), "/password/reset", requestPasswordResetHandler(service))
			rs.AddPostHandler(c, limiter("reset-complete"), "/password/reset/complete", completePasswordResetHandler(service))
		},
	)
}

func signUpHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req SignUpRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		session, err := service.SignUp(ctx.Request.Context(), &req)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.CreatedResult(session, "Account")
	}
}

func signInHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req SignInRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		session, err := service.SignIn(ctx.Request.Context(), &req)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(session, "Signed in successfully")
	}
}

func signOutHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		token, ok := router.BearerToken(ctx)
		if !ok {
			return router.UnauthorizedResult("missing bearer token")
		}

		if err := service.SignOut(ctx.Request.Context(), token); err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(nil, "Signed out successfully")
	}
}

func currentUserHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		token, ok := router.BearerToken(ctx)
		if !ok {
			return router.UnauthorizedResult("missing bearer token")
		}

		user, err := service.CurrentUser(ctx.Request.Context(), token)
		if err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(user, "User retrieved successfully")
	}
}

func requestPasswordResetHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req PasswordResetRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		if err := service.RequestPasswordReset(ctx.Request.Context(), &req); err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(nil, "If an account exists for this email, a reset link has been sent")
	}
}

func completePasswordResetHandler(service AuthService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req CompletePasswordResetRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		if err := service.CompletePasswordReset(ctx.Request.Context(), &req); err != nil {
			return router.AppErrorResult(err)
		}

		return router.OKResult(nil, "Password updated successfully")
	}
}
