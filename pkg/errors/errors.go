package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorType classifies an AppError; HTTPStatusCode maps it to a response.
type ErrorType string

const (
	ErrorTypeInvalidRequest      ErrorType = "INVALID_REQUEST"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeConflict            ErrorType = "CONFLICT"
	ErrorTypeDatabaseError       ErrorType = "DATABASE_ERROR"
	ErrorTypeConfiguration       ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
	ErrorTypeUnknown             ErrorType = "UNKNOWN_ERROR"
)

const pgUniqueViolation = "23505"

// AppError carries a client-safe Message; Err is for logs only.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

func NewInvalidRequestError(message string, err error) *AppError {
	return newError(ErrorTypeInvalidRequest, message, err)
}

func NewUnauthorizedError(message string, err error) *AppError {
	return newError(ErrorTypeUnauthorized, message, err)
}

func NewNotFoundError(message string, err error) *AppError {
	return newError(ErrorTypeNotFound, message, err)
}

func NewConflictError(message string, err error) *AppError {
	return newError(ErrorTypeConflict, message, err)
}

func NewDatabaseError(message string, err error) *AppError {
	return newError(ErrorTypeDatabaseError, message, err)
}

// NewConfigurationError reports missing or broken operator configuration.
func NewConfigurationError(message string, err error) *AppError {
	return newError(ErrorTypeConfiguration, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return newError(ErrorTypeInternalServerError, message, err)
}

// GetErrorType returns ErrorTypeUnknown for errors that wrap no AppError.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

func IsType(err error, t ErrorType) bool {
	return err != nil && GetErrorType(err) == t
}

// IsDuplicateKeyError recognises unique violations from postgres, from gorm's
// translated errors, and by message from sqlite.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, pgUniqueViolation)
}
