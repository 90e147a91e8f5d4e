package handlers

import (
	"fmt"
	"net/http"

	"mqtt-panel/handlers/base"
	"mqtt-panel/models"
	"mqtt-panel/utils"

	"github.com/labstack/echo/v4"
)

// ===================================================================
// SWITCHES
// ===================================================================

func (h *APIHandler) ListSwitches(c echo.Context) error {
	return base.SendListJSON(c, h.manager.ListSwitches(base.ExtractConnectionFilter(c)), nil)
}

func (h *APIHandler) GetSwitch(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	panel, err := h.manager.GetSwitch(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Switch retrieved successfully", panel))
}

func (h *APIHandler) CreateSwitch(c echo.Context) error {
	var req models.SwitchPanel
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	created, err := h.manager.AddSwitch(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return base.SendCreateResponse(c, "Switch", created)
}

func (h *APIHandler) UpdateSwitch(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	var req models.SwitchUpdate
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.manager.UpdateSwitch(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return base.SendUpdateResponse(c, "Switch", id, updated)
}

func (h *APIHandler) DeleteSwitch(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.RemoveSwitch(c.Request().Context(), id); err != nil {
		return err
	}
	return base.SendDeletionJSON(c, "Switch", id)
}

// ToggleSwitch flips the switch. A failed publish still returns the flipped panel with
// published set to false; the failure itself reaches the dashboard as a notification.
func (h *APIHandler) ToggleSwitch(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	panel, err := h.manager.ToggleSwitch(c.Request().Context(), id)
	if err != nil && !models.IsPublishError(err) {
		return err
	}
	data := map[string]interface{}{
		"switch":    panel,
		"published": err == nil,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	return base.SendOKJSON(c, fmt.Sprintf("Switch %s toggled", panel.Name), data)
}

func (h *APIHandler) ReorderSwitches(c echo.Context) error {
	var req models.ReorderRequest
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	if err := h.manager.ReorderSwitches(c.Request().Context(), req.IDs); err != nil {
		return err
	}
	return base.SendListJSON(c, h.manager.ListSwitches(""), nil)
}

// ===================================================================
// BUTTONS
// ===================================================================

func (h *APIHandler) ListButtons(c echo.Context) error {
	return base.SendListJSON(c, h.manager.ListButtons(base.ExtractConnectionFilter(c)), nil)
}

func (h *APIHandler) GetButton(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	panel, err := h.manager.GetButton(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Button retrieved successfully", panel))
}

func (h *APIHandler) CreateButton(c echo.Context) error {
	var req models.ButtonPanel
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	created, err := h.manager.AddButton(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return base.SendCreateResponse(c, "Button", created)
}

func (h *APIHandler) UpdateButton(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	var req models.ButtonUpdate
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.manager.UpdateButton(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return base.SendUpdateResponse(c, "Button", id, updated)
}

func (h *APIHandler) DeleteButton(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.RemoveButton(c.Request().Context(), id); err != nil {
		return err
	}
	return base.SendDeletionJSON(c, "Button", id)
}

// TriggerButton publishes the button payload. Publish failures map to 409.
func (h *APIHandler) TriggerButton(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.TriggerButton(c.Request().Context(), id); err != nil {
		return err
	}
	return base.SendOKJSON(c, "Button triggered", map[string]string{"id": id})
}

// ===================================================================
// URI LAUNCHERS
// ===================================================================

func (h *APIHandler) ListUriLaunchers(c echo.Context) error {
	return base.SendListJSON(c, h.manager.ListUriLaunchers(base.ExtractConnectionFilter(c)), nil)
}

func (h *APIHandler) GetUriLauncher(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	panel, err := h.manager.GetUriLauncher(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("URI launcher retrieved successfully", panel))
}

func (h *APIHandler) CreateUriLauncher(c echo.Context) error {
	var req models.UriLauncherPanel
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	created, err := h.manager.AddUriLauncher(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return base.SendCreateResponse(c, "URI launcher", created)
}

func (h *APIHandler) UpdateUriLauncher(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	var req models.UriLauncherUpdate
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.manager.UpdateUriLauncher(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return base.SendUpdateResponse(c, "URI launcher", id, updated)
}

func (h *APIHandler) DeleteUriLauncher(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.RemoveUriLauncher(c.Request().Context(), id); err != nil {
		return err
	}
	return base.SendDeletionJSON(c, "URI launcher", id)
}

// LaunchURI hands the last received uri to the dashboard, which opens it.
func (h *APIHandler) LaunchURI(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	uri, err := h.manager.LaunchURI(id)
	if err != nil {
		return err
	}
	return base.SendOKJSON(c, "URI ready", map[string]string{"uri": uri})
}

// Resubscribe re-issues the subscription of a switch or uri launcher.
func (h *APIHandler) Resubscribe(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.Resubscribe(c.Request().Context(), id); err != nil {
		return err
	}
	return base.SendOKJSON(c, "Resubscribe requested", map[string]string{"id": id})
}
