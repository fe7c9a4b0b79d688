// Package errors defines the service error taxonomy shared by the HTTP API,
// the CLI and the domain services.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	CodeAuthRequired      ErrorCode = "AUTH_REQUIRED"
	CodeInvalidToken      ErrorCode = "INVALID_TOKEN"
	CodePermissionDenied  ErrorCode = "PERMISSION_DENIED"
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeTenantNotFound    ErrorCode = "TENANT_NOT_FOUND"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeNotConfirmed      ErrorCode = "NOT_CONFIRMED"
	CodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// FieldError is a validation message attached to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ServiceError is the error type surfaced to callers.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Fields     []FieldError
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a detail value and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Unauthorized reports a missing session.
func Unauthorized(message string) *ServiceError {
	return newError(CodeAuthRequired, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a bearer token that failed verification.
func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "Invalid or expired token", err)
}

// PermissionDenied reports an access-control rejection.
func PermissionDenied(message string, err error) *ServiceError {
	return newError(CodePermissionDenied, http.StatusForbidden, message, err)
}

// Validation reports local validation failures, one entry per field.
func Validation(fields ...FieldError) *ServiceError {
	e := newError(CodeValidationFailed, http.StatusBadRequest, "Validation failed", nil)
	e.Fields = fields
	return e
}

// TenantNotFound reports a lease whose tenant email matches no profile.
func TenantNotFound(email string) *ServiceError {
	return newError(CodeTenantNotFound, http.StatusNotFound, "Tenant not found. Make sure they have signed up.", nil).
		WithDetails("email", email)
}

// NotFound reports a missing record.
func NotFound(message string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, message, nil)
}

// NotConfirmed reports a destructive action the user did not confirm.
func NotConfirmed(prompt string) *ServiceError {
	return newError(CodeNotConfirmed, http.StatusPreconditionRequired, "Action not confirmed", nil).
		WithDetails("prompt", prompt)
}

// Persistence reports a failed remote read or write.
func Persistence(message string, err error) *ServiceError {
	return newError(CodePersistenceFailed, http.StatusBadGateway, message, err)
}

// RateLimitExceeded reports a throttled caller.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "Rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// Internal reports an unexpected failure.
func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

// GetServiceError extracts a *ServiceError from err's chain.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == code
}
