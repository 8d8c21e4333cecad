package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with the HTTP status it should be reported with.
type AppError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError reports bad client input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NewJSONError reports an unparsable request body.
func NewJSONError(err error) *AppError {
	return &AppError{
		Message:    "Invalid JSON",
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewNotFoundError is also used for ownership failures, so that callers cannot
// tell a foreign vehicle apart from a missing one.
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewMethodNotAllowedError() *AppError {
	return &AppError{
		Message:    "Method not allowed",
		StatusCode: http.StatusMethodNotAllowed,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewDatabaseError wraps a failure of the authoritative relational store.
func NewDatabaseError(err error) *AppError {
	return &AppError{
		Message:    "Database error",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// StatusOf returns the HTTP status for err, 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
