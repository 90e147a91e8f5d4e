package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"mqtt-panel/models"
	"mqtt-panel/repositories/base"
	"mqtt-panel/utils"

	"github.com/labstack/echo/v4"
)

var errorLogger = slog.Default().With("component", "error_handler")

// SetErrorLogger sets the logger for error handling.
func SetErrorLogger(logger *slog.Logger) {
	errorLogger = logger.With("component", "error_handler")
}

// CustomHTTPErrorHandler is the central error handler for the Echo application.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if s, ok := httpErr.Message.(string); ok {
			message = s
		}
		_ = c.JSON(httpErr.Code, utils.ErrorResponse(message))
		return
	}

	appErr := toAppError(err)
	if appErr.Code >= http.StatusInternalServerError {
		errorLogger.Error("Unhandled error occurred",
			"error_type", fmt.Sprintf("%T", err),
			"path", c.Path(),
			slog.Any("error", err))
	} else if internalErr := appErr.Unwrap(); internalErr != nil {
		errorLogger.Info("Error handled",
			"status_code", appErr.Code,
			"error_message", appErr.Message,
			slog.Any("internal_error", internalErr))
	}

	_ = c.JSON(appErr.Code, utils.ErrorResponse(appErr.Message))
}

// toAppError maps domain errors onto HTTP statuses.
func toAppError(err error) *utils.AppError {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case models.IsConfigError(err):
		return utils.NewNotFoundError(err.Error(), err)
	case models.IsValidationError(err):
		return utils.NewBadRequestError(err.Error(), err)
	case models.IsPublishError(err), models.IsConnectError(err):
		return utils.NewConflictError(err.Error(), err)
	case base.IsRepositoryError(err):
		return utils.NewInternalServerError(base.GetErrorMessage(err), err)
	}
	return utils.NewInternalServerError("An unexpected internal error occurred.", err)
}
