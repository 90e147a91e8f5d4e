package base

import (
	"mqtt-panel/models"
	"mqtt-panel/utils"

	"github.com/labstack/echo/v4"
)

// ===================================================================
// PARAMETER EXTRACTION HELPERS
// ===================================================================

// ExtractStringParam extracts string parameter from URL with validation
func ExtractStringParam(c echo.Context, paramName string, required bool) (string, error) {
	value := c.Param(paramName)
	if required && value == "" {
		return "", BadRequestError("%s parameter is required", paramName)
	}

	return value, nil
}

// ExtractID extracts the ":id" path parameter.
func ExtractID(c echo.Context) (string, error) {
	return ExtractStringParam(c, "id", true)
}

// ExtractConnectionFilter reads the optional connectionId query filter.
func ExtractConnectionFilter(c echo.Context) string {
	return c.QueryParam("connectionId")
}

// ExtractLimit reads the optional limit query parameter.
func ExtractLimit(c echo.Context, defaultLimit int) int {
	return utils.GetIntOrDefault(c.QueryParam("limit"), defaultLimit)
}

// ExtractPagination reads limit and offset query parameters.
func ExtractPagination(c echo.Context, defaultLimit int) utils.PaginationParams {
	return utils.GetPaginationParams(c.QueryParam("limit"), c.QueryParam("offset"), defaultLimit)
}

// ExtractImportMode reads the mode query parameter, defaulting to merge.
func ExtractImportMode(c echo.Context) models.ImportMode {
	return models.ImportMode(utils.GetValueOrDefault(c.QueryParam("mode"), string(models.ImportMerge)))
}

// BindBody binds the request body into v.
func BindBody(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return HandleBindError(c, err)
	}
	return nil
}
