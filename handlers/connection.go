package handlers

import (
	"fmt"
	"net/http"

	"mqtt-panel/handlers/base"
	"mqtt-panel/models"
	"mqtt-panel/utils"

	"github.com/labstack/echo/v4"
)

// connectionView adds the live session status to a stored connection.
type connectionView struct {
	models.Connection
	Status models.ConnectionStatus `json:"status"`
}

func (h *APIHandler) view(conn models.Connection) connectionView {
	return connectionView{Connection: conn, Status: h.manager.Status(conn.ID)}
}

func (h *APIHandler) ListConnections(c echo.Context) error {
	connections := h.manager.ListConnections()
	views := make([]connectionView, 0, len(connections))
	for _, conn := range connections {
		views = append(views, h.view(conn))
	}
	pagination := base.ExtractPagination(c, 0)
	return base.SendListJSON(c, views, &pagination)
}

func (h *APIHandler) GetConnection(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	conn, err := h.manager.GetConnection(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Connection retrieved successfully", h.view(conn)))
}

func (h *APIHandler) CreateConnection(c echo.Context) error {
	var req models.Connection
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	created, err := h.manager.AddConnection(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return base.SendCreateResponse(c, "Connection", h.view(created))
}

func (h *APIHandler) UpdateConnection(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	var req models.ConnectionUpdate
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.manager.UpdateConnection(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return base.SendUpdateResponse(c, "Connection", id, h.view(updated))
}

func (h *APIHandler) DeleteConnection(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.RemoveConnection(c.Request().Context(), id); err != nil {
		return err
	}
	return base.SendDeletionJSON(c, "Connection", id)
}

// ===================================================================
// SESSION CONTROL
// ===================================================================

// Connect starts a session. The result of the attempt arrives as notifications.
func (h *APIHandler) Connect(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.Connect(c.Request().Context(), id); err != nil {
		return err
	}
	return h.sendStatus(c, id, "Connect requested")
}

func (h *APIHandler) Disconnect(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.Disconnect(c.Request().Context(), id); err != nil {
		return err
	}
	return h.sendStatus(c, id, "Disconnected")
}

func (h *APIHandler) Reconnect(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	if err := h.manager.Reconnect(c.Request().Context(), id); err != nil {
		return err
	}
	return h.sendStatus(c, id, "Reconnect requested")
}

// Publish sends a raw message on a connection.
func (h *APIHandler) Publish(c echo.Context) error {
	id, err := base.ExtractID(c)
	if err != nil {
		return err
	}
	var req models.PublishRequest
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := h.manager.Publish(c.Request().Context(), id, req.Topic, req.Payload, req.QoS, req.Retain); err != nil {
		return err
	}
	return base.SendOKJSON(c, fmt.Sprintf("Published to %s", req.Topic), nil)
}

func (h *APIHandler) sendStatus(c echo.Context, id, message string) error {
	return base.SendOKJSON(c, message, map[string]interface{}{
		"connectionId": id,
		"status":       h.manager.Status(id),
	})
}
