package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"mqtt-panel/config"
	"mqtt-panel/handlers/base"
	"mqtt-panel/models"
	"mqtt-panel/notify"
	"mqtt-panel/services"
	"mqtt-panel/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const defaultNotificationLimit = 50

// APIHandler serves the dashboard operations over HTTP.
type APIHandler struct {
	manager  *services.Manager
	backup   *services.BackupService
	recorder *notify.Recorder
	username string
	password string
}

// NewAPIHandler creates a new instance of APIHandler.
func NewAPIHandler(manager *services.Manager, backup *services.BackupService, recorder *notify.Recorder, cfg *config.Config) *APIHandler {
	return &APIHandler{
		manager:  manager,
		backup:   backup,
		recorder: recorder,
		username: cfg.AuthUsername,
		password: cfg.AuthPassword,
	}
}

// NewServer builds the echo instance with middleware and every route registered.
func NewServer(h *APIHandler, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = CustomHTTPErrorHandler
	SetErrorLogger(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger(logger))

	h.RegisterRoutes(e)
	return e
}

// RegisterRoutes mounts the API under /api/v1.
func (h *APIHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.GET("/health", h.HealthCheck)
	api.POST("/login", h.Login)

	secured := api.Group("", middleware.BasicAuth(h.checkCredentials))

	// Connections
	secured.GET("/connections", h.ListConnections)
	secured.POST("/connections", h.CreateConnection)
	secured.GET("/connections/:id", h.GetConnection)
	secured.PUT("/connections/:id", h.UpdateConnection)
	secured.PATCH("/connections/:id", h.UpdateConnection)
	secured.DELETE("/connections/:id", h.DeleteConnection)
	secured.POST("/connections/:id/connect", h.Connect)
	secured.POST("/connections/:id/disconnect", h.Disconnect)
	secured.POST("/connections/:id/reconnect", h.Reconnect)
	secured.POST("/connections/:id/publish", h.Publish)

	// Switches
	secured.GET("/switches", h.ListSwitches)
	secured.POST("/switches", h.CreateSwitch)
	secured.POST("/switches/reorder", h.ReorderSwitches)
	secured.GET("/switches/:id", h.GetSwitch)
	secured.PUT("/switches/:id", h.UpdateSwitch)
	secured.PATCH("/switches/:id", h.UpdateSwitch)
	secured.DELETE("/switches/:id", h.DeleteSwitch)
	secured.POST("/switches/:id/toggle", h.ToggleSwitch)

	// Buttons
	secured.GET("/buttons", h.ListButtons)
	secured.POST("/buttons", h.CreateButton)
	secured.GET("/buttons/:id", h.GetButton)
	secured.PUT("/buttons/:id", h.UpdateButton)
	secured.PATCH("/buttons/:id", h.UpdateButton)
	secured.DELETE("/buttons/:id", h.DeleteButton)
	secured.POST("/buttons/:id/trigger", h.TriggerButton)

	// URI launchers
	secured.GET("/uri-launchers", h.ListUriLaunchers)
	secured.POST("/uri-launchers", h.CreateUriLauncher)
	secured.GET("/uri-launchers/:id", h.GetUriLauncher)
	secured.PUT("/uri-launchers/:id", h.UpdateUriLauncher)
	secured.PATCH("/uri-launchers/:id", h.UpdateUriLauncher)
	secured.DELETE("/uri-launchers/:id", h.DeleteUriLauncher)
	secured.POST("/uri-launchers/:id/launch", h.LaunchURI)

	secured.POST("/panels/:id/resubscribe", h.Resubscribe)

	// Notifications
	secured.GET("/notifications", h.ListNotifications)
	secured.DELETE("/notifications", h.ClearNotifications)

	// Backup
	secured.GET("/backup/export", h.ExportBackup)
	secured.POST("/backup/import", h.ImportBackup)
}

// ===================================================================
// HEALTH CHECK & LOGIN
// ===================================================================

// HealthCheck provides a simple health status of the service.
func (h *APIHandler) HealthCheck(c echo.Context) error {
	connections := h.manager.ListConnections()
	connected := 0
	for _, conn := range connections {
		if h.manager.Status(conn.ID) == models.StatusConnected {
			connected++
		}
	}
	data := map[string]interface{}{
		"service":     "mqtt-panel",
		"timestamp":   utils.GetUnixTimestamp(),
		"connections": len(connections),
		"connected":   connected,
	}
	return c.JSON(http.StatusOK, utils.SuccessResponse("Service is healthy", data))
}

// Login checks the demo credentials so the dashboard can gate its screens.
func (h *APIHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := base.BindBody(c, &req); err != nil {
		return err
	}
	ok, _ := h.checkCredentials(req.Username, req.Password, c)
	if !ok {
		return utils.NewUnauthorizedError("invalid username or password")
	}
	return base.SendOKJSON(c, "Login successful", map[string]string{"username": req.Username})
}

func (h *APIHandler) checkCredentials(username, password string, _ echo.Context) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(h.password)) == 1
	return userOK && passOK, nil
}

// ===================================================================
// NOTIFICATIONS
// ===================================================================

// ListNotifications returns the most recent notifications, newest last.
func (h *APIHandler) ListNotifications(c echo.Context) error {
	items := h.recorder.Recent(base.ExtractLimit(c, defaultNotificationLimit))
	return c.JSON(http.StatusOK, utils.CreateListResponse(items, len(items), nil))
}

// ClearNotifications drops every recorded notification.
func (h *APIHandler) ClearNotifications(c echo.Context) error {
	h.recorder.Clear()
	return base.SendOKJSON(c, "Notifications cleared", nil)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	httpLogger := logger.With("component", "http")
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			httpLogger.LogAttrs(context.Background(), level, "HTTP request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.Any("error", v.Error))
			return nil
		},
	})
}
