package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and services use these instead of hardcoded
// strings so HTTP status mapping stays in one place.
const (
	// Validation (400)
	ErrCodeValidationInvalidTime    ErrorCode = "validation_invalid_time"
	ErrCodeValidationInvalidPayload ErrorCode = "validation_invalid_payload"
	ErrCodeValidationInvalidJSON    ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"

	// Not Found (404)
	ErrCodeNotFoundRoute     ErrorCode = "not_found_route"
	ErrCodeNotFoundWindow    ErrorCode = "not_found_ride_window"
	ErrCodeNotFoundRide      ErrorCode = "not_found_ride"

	// Conflict (409)
	ErrCodeConflictSnapshot ErrorCode = "conflict_snapshot_exists"

	// Notification delivery
	ErrCodeNotifyNoToken        ErrorCode = "notify_no_token"
	ErrCodeNotifyDeliveryFailed ErrorCode = "notify_delivery_failed"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB           ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected   ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamForecast     ErrorCode = "upstream_forecast_unavailable"
	ErrCodeUpstreamRateLimited  ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its HTTP status code. Unrecognized codes
// map to 500 as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict
	case strings.HasPrefix(s, "notify_"):
		return http.StatusBadGateway
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. Domain and handler errors
// are expressed as AppError to get consistent formatting, HTTP mapping, and
// error chain support.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// NewAppError creates an AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates an AppError carrying structured details that
// are safe to expose to clients.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
