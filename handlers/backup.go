package handlers

import (
	"fmt"
	"net/http"

	"mqtt-panel/handlers/base"
	"mqtt-panel/models"

	"github.com/labstack/echo/v4"
)

// ExportBackup downloads the full dashboard configuration.
func (h *APIHandler) ExportBackup(c echo.Context) error {
	backup, err := h.backup.Export(c.Request().Context())
	if err != nil {
		return err
	}
	filename := fmt.Sprintf("mqtt-panel-backup-%s.json", backup.ExportDate.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.JSON(http.StatusOK, backup)
}

// ImportBackup applies a backup file. ?mode=merge (default) or ?mode=replace.
func (h *APIHandler) ImportBackup(c echo.Context) error {
	var backup models.Backup
	if err := base.BindBody(c, &backup); err != nil {
		return err
	}
	mode := base.ExtractImportMode(c)
	result, err := h.backup.Import(c.Request().Context(), &backup, mode)
	if err != nil {
		return err
	}
	return base.SendOKJSON(c, "Backup imported successfully", result)
}
