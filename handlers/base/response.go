package base

import (
	"fmt"
	"net/http"

	"mqtt-panel/utils"

	"github.com/labstack/echo/v4"
)

// ===================================================================
// HTTP ERROR HANDLING
// ===================================================================

// CreateHTTPError creates a standard HTTP error with formatted message
func CreateHTTPError(statusCode int, message string, args ...interface{}) error {
	formattedMessage := fmt.Sprintf(message, args...)
	return echo.NewHTTPError(statusCode, formattedMessage)
}

// BadRequestError creates a 400 Bad Request error
func BadRequestError(message string, args ...interface{}) error {
	return CreateHTTPError(http.StatusBadRequest, message, args...)
}

// HandleBindError handles request binding errors
func HandleBindError(c echo.Context, err error) error {
	return BadRequestError("Invalid request body: %v", err)
}

// ===================================================================
// RESPONSE HELPERS
// ===================================================================

// SendSuccessJSON sends a success response with JSON data
func SendSuccessJSON(c echo.Context, statusCode int, message string, data interface{}) error {
	return c.JSON(statusCode, utils.SuccessResponse(message, data))
}

// SendOKJSON sends a 200 OK response
func SendOKJSON(c echo.Context, message string, data interface{}) error {
	return SendSuccessJSON(c, http.StatusOK, message, data)
}

// SendCreateResponse sends response for create operations
func SendCreateResponse(c echo.Context, resourceType string, data interface{}) error {
	return SendSuccessJSON(c, http.StatusCreated, fmt.Sprintf("%s created successfully", resourceType), data)
}

// SendUpdateResponse sends response for update operations
func SendUpdateResponse(c echo.Context, resourceType string, identifier interface{}, data interface{}) error {
	return SendOKJSON(c, fmt.Sprintf("%s %v updated successfully", resourceType, identifier), data)
}

// SendDeletionJSON sends a deletion success response
func SendDeletionJSON(c echo.Context, resourceType string, identifier interface{}) error {
	return SendOKJSON(c, fmt.Sprintf("%s %v deleted successfully", resourceType, identifier), nil)
}

// SendListJSON sends a list response. A nil pagination lists everything.
func SendListJSON[T any](c echo.Context, items []T, pagination *utils.PaginationParams) error {
	count := len(items)
	if items == nil {
		items = []T{}
	}
	if pagination != nil {
		items = utils.Page(items, *pagination)
	}
	return c.JSON(http.StatusOK, utils.CreateListResponse(items, count, pagination))
}
