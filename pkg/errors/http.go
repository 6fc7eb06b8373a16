package errors

import (
	"errors"
	"net/http"
)

const genericMessage = "An unexpected error occurred"

var statusByType = map[ErrorType]int{
	ErrorTypeInvalidRequest: http.StatusBadRequest,
	ErrorTypeUnauthorized:   http.StatusUnauthorized,
	ErrorTypeNotFound:       http.StatusNotFound,
	ErrorTypeConflict:       http.StatusConflict,
}

// HTTPStatusCode defaults to 500 for server-side and unclassified errors.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetHumanReadableMessage never exposes the text of a non-AppError.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		return appErr.Message
	}
	return genericMessage
}
