package router

import (
	"net/http"
	"strings"

	"github.com/akeren/clothiq-api/internal/log"
	apperrors "github.com/akeren/clothiq-api/pkg/errors"
)

// GetLogger returns the request-scoped logger injected by the router.
func GetLogger(ctx *RequestContext) *log.Logger {
	return log.GetLoggerInstanceFromContext(ctx.Request.Context(), nil)
}

func OKResult(data any, message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusOK, Data: data, Message: message}
}

func CreatedResult(data any, resourceName string) *ServiceResult {
	return &ServiceResult{
		StatusCode: http.StatusCreated,
		Data:       data,
		Message:    resourceName + " created successfully",
	}
}

func BadRequestResult(message string, payload any) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusBadRequest, Data: payload, Message: message}
}

func UnauthorizedResult(message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusUnauthorized, Message: message}
}

func NotFoundResult(message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusNotFound, Message: message}
}

func TooManyRequestsResult(data RateLimitResponse) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusTooManyRequests, Data: data, Message: "Too Many Requests"}
}

func InternalServerErrorResult(message string) *ServiceResult {
	return &ServiceResult{StatusCode: http.StatusInternalServerError, Message: message}
}

func ErrorResult(statusCode int, message string, data any) *ServiceResult {
	return &ServiceResult{StatusCode: statusCode, Data: data, Message: message}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(ctx *RequestContext) (string, bool) {
	header := strings.TrimSpace(ctx.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

// AppErrorResult maps err to its status; only AppError messages reach the client.
func AppErrorResult(err error) *ServiceResult {
	return ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
}

// BindJSON decodes and validates the body into req. A non-nil result is the
// 400 response to return as is.
func BindJSON(ctx *RequestContext, req any) *ServiceResult {
	err := ctx.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	GetLogger(ctx).Warn("Rejected request body", "error", err)
	if fields := apperrors.FormatValidationErrors(err, req); len(fields) > 0 {
		return BadRequestResult("Invalid request payload", fields)
	}
	return BadRequestResult("Invalid request body", nil)
}
