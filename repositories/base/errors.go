package base

import (
	"errors"
	"fmt"

	"mqtt-panel/models"
)

// RepositoryError wraps a persistence failure.
type RepositoryError struct {
	Operation string
	Table     string
	Message   string
	Cause     error
}

func (e *RepositoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to %s %s: %s (caused by: %v)", e.Operation, e.Table, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Table, e.Message)
}

func (e *RepositoryError) Unwrap() error {
	return e.Cause
}

func NewRepositoryError(operation, table, message string, cause error) *RepositoryError {
	return &RepositoryError{
		Operation: operation,
		Table:     table,
		Message:   message,
		Cause:     cause,
	}
}

// WrapStoreError wraps a storage error with operation context.
func WrapStoreError(operation, table string, err error) error {
	if err == nil {
		return nil
	}
	return NewRepositoryError(operation, table, "storage operation failed", err)
}

func IsRepositoryError(err error) bool {
	var repositoryError *RepositoryError
	return errors.As(err, &repositoryError)
}

// GetErrorMessage extracts a user-friendly error message.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		configErr     *models.ConfigError
		validationErr *models.ValidationError
		publishErr    *models.PublishError
		repositoryErr *RepositoryError
	)
	switch {
	case errors.As(err, &configErr):
		return configErr.Error()
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &publishErr):
		return publishErr.Error()
	case errors.As(err, &repositoryErr):
		return fmt.Sprintf("Storage operation failed: %s", repositoryErr.Message)
	default:
		return "An unexpected error occurred"
	}
}

// GetErrorCode returns the error code for API responses.
func GetErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case models.IsConfigError(err):
		return "ENTITY_NOT_FOUND"
	case models.IsValidationError(err):
		return "VALIDATION_ERROR"
	case models.IsPublishError(err):
		return "PUBLISH_ERROR"
	case IsRepositoryError(err):
		return "REPOSITORY_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
