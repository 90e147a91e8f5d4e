package utils

import (
	"net/http"
)

// AppError is an error with the HTTP status it should be reported with.
type AppError struct {
	Code    int    // HTTP status code (e.g., 404, 400, 500)
	Message string // User-facing message
	err     error  // Internal-facing error for logging purposes
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// --- Error Helper Functions ---

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(message string, originalError ...error) *AppError {
	return newAppError(http.StatusNotFound, message, originalError)
}

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(message string, originalError ...error) *AppError {
	return newAppError(http.StatusBadRequest, message, originalError)
}

// NewConflictError creates a 409 Conflict error, used when the broker session is not usable.
func NewConflictError(message string, originalError ...error) *AppError {
	return newAppError(http.StatusConflict, message, originalError)
}

// NewUnauthorizedError creates a 401 Unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return newAppError(http.StatusUnauthorized, message, nil)
}

// NewInternalServerError creates a 500 Internal Server Error.
func NewInternalServerError(message string, originalError error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		err:     originalError,
	}
}

func newAppError(code int, message string, originalError []error) *AppError {
	e := &AppError{
		Code:    code,
		Message: message,
	}
	if len(originalError) > 0 {
		e.err = originalError[0]
	}
	return e
}
