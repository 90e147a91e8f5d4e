package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mqtt-panel/models"
	"mqtt-panel/mqtt"
	"mqtt-panel/notify"
	"mqtt-panel/repositories/interfaces"
)

// Manager owns the registries and the live broker sessions. It is constructed once per
// process and is safe for concurrent use.
type Manager struct {
	connections interfaces.ConnectionRepositoryInterface
	panels      interfaces.PanelRepositoryInterface
	dialer      mqtt.Dialer
	sink        notify.Sink
	opts        mqtt.Options
	timeout     time.Duration
	logger      *slog.Logger
	now         func() time.Time

	// mu guards sessions and serialises every registry mutation driven by session events.
	mu       sync.Mutex
	sessions map[string]*liveSession
	nextGen  uint64
}

// liveSession is the session table entry of one Connection. generation identifies the
// session that owns the entry; events carrying another generation are dropped.
type liveSession struct {
	session    mqtt.Session
	generation uint64
	status     models.ConnectionStatus
}

func NewManager(
	connections interfaces.ConnectionRepositoryInterface,
	panels interfaces.PanelRepositoryInterface,
	dialer mqtt.Dialer,
	sink notify.Sink,
	opts mqtt.Options,
	timeout time.Duration,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		connections: connections,
		panels:      panels,
		dialer:      dialer,
		sink:        sink,
		opts:        opts,
		timeout:     timeout,
		logger:      logger.With("component", "session_manager"),
		now:         time.Now,
		sessions:    make(map[string]*liveSession),
	}
}

// Start loads the registries and connects every Connection marked autoConnect.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.Load(ctx); err != nil {
		return err
	}
	for _, conn := range m.connections.List() {
		if !conn.AutoConnect {
			continue
		}
		if err := m.Connect(ctx, conn.ID); err != nil {
			m.logger.Error("Auto-connect failed", "connectionId", conn.ID, slog.Any("error", err))
		}
	}
	return nil
}

// Load reads both registries from storage without opening any session.
func (m *Manager) Load(ctx context.Context) error {
	if err := m.connections.Load(ctx); err != nil {
		return fmt.Errorf("failed to load connections: %w", err)
	}
	if err := m.panels.Load(ctx, m.connections.Exists); err != nil {
		return fmt.Errorf("failed to load panels: %w", err)
	}
	m.logger.Info("Registries loaded", "connections", len(m.connections.List()),
		"switches", len(m.panels.ListSwitches("")),
		"buttons", len(m.panels.ListButtons("")),
		"uri_launchers", len(m.panels.ListUriLaunchers("")))
	return nil
}

// Shutdown closes every live session.
func (m *Manager) Shutdown() {
	ctx, cancel := m.context()
	defer cancel()
	m.DisconnectAll(ctx)
	m.logger.Info("Session manager stopped")
}

// ===================================================================
// CONNECTION REGISTRY
// ===================================================================

// AddConnection stores a new Connection and connects it when autoConnect is set.
func (m *Manager) AddConnection(ctx context.Context, conn models.Connection) (models.Connection, error) {
	created, err := m.connections.Create(ctx, conn)
	if err != nil {
		return models.Connection{}, err
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("Connection %s added", created.Name), created.ID, "")

	if created.AutoConnect {
		if err := m.Connect(ctx, created.ID); err != nil {
			m.logger.Error("Auto-connect failed", "connectionId", created.ID, slog.Any("error", err))
		}
	}
	return created, nil
}

// UpdateConnection merges the edit. A live session keeps its old settings until Reconnect.
func (m *Manager) UpdateConnection(ctx context.Context, id string, update models.ConnectionUpdate) (models.Connection, error) {
	updated, err := m.connections.Update(ctx, id, update)
	if err != nil {
		return models.Connection{}, err
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("Connection %s updated", updated.Name), updated.ID, "")
	return updated, nil
}

// RemoveConnection tears down the session and deletes the Connection with all its panels.
// Unknown ids are ignored.
func (m *Manager) RemoveConnection(ctx context.Context, id string) error {
	m.mu.Lock()
	conn, err := m.connections.Get(id)
	if err != nil {
		m.mu.Unlock()
		return nil
	}

	entry := m.sessions[id]
	delete(m.sessions, id)

	removedPanels, err := m.panels.DeleteByConnection(ctx, id)
	if err == nil {
		_, err = m.connections.Delete(ctx, id)
	}
	m.mu.Unlock()

	if entry != nil {
		if entry.session != nil {
			entry.session.Close()
		}
		m.notify(models.LevelInfo, fmt.Sprintf("Disconnected from %s", conn.Name), id, models.StatusDisconnected)
	}
	if err != nil {
		return err
	}

	m.logger.Info("Connection removed", "connectionId", id, "panels_removed", removedPanels)
	m.notify(models.LevelInfo, fmt.Sprintf("Connection %s removed", conn.Name), id, "")
	return nil
}

func (m *Manager) GetConnection(id string) (models.Connection, error) {
	return m.connections.Get(id)
}

func (m *Manager) ListConnections() []models.Connection {
	return m.connections.List()
}

// ===================================================================
// HELPERS
// ===================================================================

func (m *Manager) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m *Manager) notify(level models.NotificationLevel, message, connectionID string, status models.ConnectionStatus) {
	m.sink.Notify(models.Notification{
		Level:        level,
		Message:      message,
		ConnectionID: connectionID,
		Status:       status,
		Timestamp:    m.now(),
	})
}

// connectionName is used in notification texts. It falls back to the id.
func (m *Manager) connectionName(id string) string {
	if conn, err := m.connections.Get(id); err == nil && conn.Name != "" {
		return conn.Name
	}
	return id
}
