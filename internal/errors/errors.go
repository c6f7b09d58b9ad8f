package errors

import (
	"fmt"
)

// APIError is an error that knows which HTTP status it should be reported with.
// Only Message is sent to clients.
type APIError struct {
	Code    ErrorCode `json:"-"`
	Message string    `json:"error"`
	Status  int       `json:"-"`
	cause   error
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any
func (e *APIError) Unwrap() error {
	return e.cause
}

// Wrap attaches an underlying cause for logging. The cause is never serialized.
func (e *APIError) Wrap(err error) *APIError {
	e.cause = err
	return e
}

func newError(code ErrorCode, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Status:  code.StatusCode(),
	}
}

// NotFound creates a NOT_FOUND error
func NotFound(resource string) *APIError {
	return newError(ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// Unauthorized creates an UNAUTHORIZED error
func Unauthorized(message string) *APIError {
	if message == "" {
		message = "Unauthorized"
	}
	return newError(ErrUnauthorized, message)
}

// Conflict creates a CONFLICT error, e.g. Conflict("Post already liked")
func Conflict(message string) *APIError {
	return newError(ErrConflict, message)
}

// BadRequest creates a BAD_REQUEST error
func BadRequest(message string) *APIError {
	return newError(ErrBadRequest, message)
}

// InternalError creates an INTERNAL_ERROR
func InternalError(message string) *APIError {
	if message == "" {
		message = "Server error"
	}
	return newError(ErrInternalError, message)
}

// RateLimited creates a RATE_LIMITED error
func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newError(ErrRateLimited, message)
}
