package services

import (
	"context"
	"fmt"
	"log/slog"

	"mqtt-panel/models"
	"mqtt-panel/mqtt"
	"mqtt-panel/topic"
)

// Connect opens a session for the Connection. It is a no-op while a session entry exists,
// whether connecting, connected or retrying. The Connection is re-read so edits made since
// the last connect take effect.
func (m *Manager) Connect(ctx context.Context, id string) error {
	m.mu.Lock()
	if _, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return nil
	}
	conn, err := m.connections.Get(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}

	m.nextGen++
	entry := &liveSession{generation: m.nextGen, status: models.StatusConnecting}
	m.sessions[id] = entry
	m.setStatus(ctx, id, models.StatusConnecting)
	m.notify(models.LevelInfo, fmt.Sprintf("Connecting to %s...", conn.Name), id, models.StatusConnecting)

	cfg := mqtt.NewSessionConfig(conn, m.opts)
	session, err := m.dialer.Dial(cfg, m.handlers(id, entry.generation))
	if err != nil {
		delete(m.sessions, id)
		m.setStatus(ctx, id, models.StatusDisconnected)
		connectErr := &models.ConnectError{ConnectionID: id, Cause: err}
		m.notify(models.LevelError, fmt.Sprintf("Failed to connect to %s: %v", conn.Name, err), id, models.StatusDisconnected)
		m.mu.Unlock()
		return connectErr
	}
	entry.session = session
	m.mu.Unlock()

	m.logger.Info("Connecting to MQTT broker", "connectionId", id, "broker", cfg.BrokerURL, "clientId", cfg.ClientID)
	session.Start()
	return nil
}

// Disconnect closes the session of the Connection. Calling it without a session is a no-op.
func (m *Manager) Disconnect(ctx context.Context, id string) error {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.sessions, id)
	m.setStatus(ctx, id, models.StatusDisconnected)
	m.notify(models.LevelInfo, fmt.Sprintf("Disconnected from %s", m.connectionName(id)), id, models.StatusDisconnected)
	m.mu.Unlock()

	if entry.session != nil {
		entry.session.Close()
	}
	return nil
}

// Reconnect drops the current session and connects again with the stored settings.
func (m *Manager) Reconnect(ctx context.Context, id string) error {
	if _, err := m.connections.Get(id); err != nil {
		return err
	}
	if err := m.Disconnect(ctx, id); err != nil {
		return err
	}
	return m.Connect(ctx, id)
}

// DisconnectAll closes every session.
func (m *Manager) DisconnectAll(ctx context.Context) {
	m.mu.Lock()
	entries := m.sessions
	m.sessions = make(map[string]*liveSession)
	for id := range entries {
		m.setStatus(ctx, id, models.StatusDisconnected)
	}
	m.mu.Unlock()

	for id, entry := range entries {
		if entry.session != nil {
			entry.session.Close()
		}
		m.logger.Info("Session closed", "connectionId", id)
	}
}

// Status reports the live status of a Connection.
func (m *Manager) Status(id string) models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[id]; ok {
		return entry.status
	}
	return models.StatusDisconnected
}

// Publish sends a message on the Connection's session. Without a connected session it fails
// with a PublishError wrapping ErrNotConnected; nothing is buffered. Broker-side failures
// arrive later and are only reported to the notification sink.
func (m *Manager) Publish(ctx context.Context, id, topicName, payload string, qos models.QoS, retain bool) error {
	if !m.connections.Exists(id) {
		return models.NewNotFoundError("connection", id)
	}
	if !topic.ValidName(topicName) {
		return models.NewValidationError("topic", topicName, "publish topic must not contain wildcards")
	}

	m.mu.Lock()
	var (
		session    mqtt.Session
		generation uint64
	)
	if entry, ok := m.sessions[id]; ok && entry.status == models.StatusConnected {
		session, generation = entry.session, entry.generation
	}
	m.mu.Unlock()

	if session == nil {
		return m.publishFailed(id, topicName, models.ErrNotConnected)
	}

	err := session.Publish(topicName, byte(qos), retain, []byte(payload), func(err error) {
		if err == nil {
			return
		}
		m.mu.Lock()
		_, current := m.current(id, generation)
		m.mu.Unlock()
		if current {
			_ = m.publishFailed(id, topicName, err)
		}
	})
	if err != nil {
		return m.publishFailed(id, topicName, err)
	}
	m.logger.Debug("Message published", "connectionId", id, "topic", topicName, "qos", qos, "retain", retain)
	return nil
}

func (m *Manager) publishFailed(id, topicName string, cause error) error {
	err := &models.PublishError{ConnectionID: id, Topic: topicName, Cause: cause}
	m.logger.Warn("Publish failed", "connectionId", id, "topic", topicName, slog.Any("error", cause))
	m.notify(models.LevelError, fmt.Sprintf("Failed to publish to %s: %v", topicName, cause), id, "")
	return err
}

// ===================================================================
// SESSION EVENTS
// ===================================================================

func (m *Manager) handlers(id string, generation uint64) mqtt.Handlers {
	return mqtt.Handlers{
		OnConnecting: func() { m.onConnecting(id, generation) },
		OnConnect:    func() { m.onConnect(id, generation) },
		OnConnectionLost: func(err error) {
			m.onDisconnected(id, generation, "Connection to %s lost: %v", err)
		},
		OnConnectError: func(err error) {
			m.onDisconnected(id, generation, "Failed to connect to %s: %v", err)
		},
		OnMessage: func(topicName string, payload []byte, retained bool) {
			m.onMessage(id, generation, topicName, payload, retained)
		},
	}
}

// current returns the entry of id if it still belongs to generation. Caller holds m.mu.
func (m *Manager) current(id string, generation uint64) (*liveSession, bool) {
	entry, ok := m.sessions[id]
	if !ok || entry.generation != generation {
		return nil, false
	}
	return entry, true
}

func (m *Manager) onConnecting(id string, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.current(id, generation)
	if !ok || entry.status == models.StatusConnecting {
		return
	}
	ctx, cancel := m.context()
	defer cancel()

	entry.status = models.StatusConnecting
	m.setStatus(ctx, id, models.StatusConnecting)
	m.notify(models.LevelInfo, fmt.Sprintf("Reconnecting to %s...", m.connectionName(id)), id, models.StatusConnecting)
}

func (m *Manager) onConnect(id string, generation uint64) {
	m.mu.Lock()
	entry, ok := m.current(id, generation)
	if !ok {
		m.mu.Unlock()
		return
	}
	ctx, cancel := m.context()
	defer cancel()

	entry.status = models.StatusConnected
	m.setStatus(ctx, id, models.StatusConnected)
	if err := m.panels.MarkStale(ctx, id); err != nil {
		m.logger.Error("Failed to mark switch state stale", "connectionId", id, slog.Any("error", err))
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("Connected to %s", m.connectionName(id)), id, models.StatusConnected)
	subscriptions := m.panels.Subscriptions(id)
	session := entry.session
	m.mu.Unlock()

	for _, sub := range subscriptions {
		m.subscribe(session, id, sub.Topic, sub.QoS)
	}
}

func (m *Manager) onDisconnected(id string, generation uint64, format string, cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.current(id, generation)
	if !ok {
		return
	}
	ctx, cancel := m.context()
	defer cancel()

	connectErr := &models.ConnectError{ConnectionID: id, Cause: cause}
	m.logger.Warn("Session went offline", "connectionId", id, "previous_status", entry.status, slog.Any("error", connectErr))
	if entry.status == models.StatusDisconnected {
		return
	}
	entry.status = models.StatusDisconnected
	m.setStatus(ctx, id, models.StatusDisconnected)
	m.notify(models.LevelError, fmt.Sprintf(format, m.connectionName(id), cause), id, models.StatusDisconnected)
}

// onMessage routes an inbound message to the panels of the Connection.
func (m *Manager) onMessage(id string, generation uint64, topicName string, payload []byte, retained bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.current(id, generation); !ok {
		return
	}
	ctx, cancel := m.context()
	defer cancel()

	text := string(payload)
	now := m.now()
	ignored := 0

	switches, err := m.panels.UpdateSwitches(ctx, func(p *models.SwitchPanel) bool {
		if p.Inert || p.ConnectionID != id || !topic.Match(p.EffectiveTopic(), topicName) {
			return false
		}
		state, ok := p.Match(text)
		if !ok {
			ignored++
			return false
		}
		p.State = state
		p.LastUpdated = &now
		p.Stale = false
		return true
	})
	if err != nil {
		m.logger.Error("Failed to store switch state", "connectionId", id, "topic", topicName, slog.Any("error", err))
	}
	if ignored > 0 {
		m.logger.Info("Payload matches neither on nor off, state unchanged", "connectionId", id, "topic", topicName, "payload", text, "switches", ignored)
	}

	launchers, err := m.panels.SetURI(ctx, id, topicName, text)
	if err != nil {
		m.logger.Error("Failed to store uri", "connectionId", id, "topic", topicName, slog.Any("error", err))
	}

	m.logger.Debug("Message routed", "connectionId", id, "topic", topicName, "retained", retained,
		"switches", len(switches), "uri_launchers", len(launchers))
}

// subscribe logs failures; one bad topic never aborts the others.
func (m *Manager) subscribe(session mqtt.Session, id, filter string, qos models.QoS) bool {
	if err := session.Subscribe(filter, byte(qos)); err != nil {
		subErr := &models.SubscribeError{ConnectionID: id, Topic: filter, Cause: err}
		m.logger.Error("Failed to subscribe to topic", "connectionId", id, "topic", filter, slog.Any("error", subErr))
		return false
	}
	return true
}

// liveSessionFor returns the session of a connected Connection, or nil.
func (m *Manager) liveSessionFor(id string) mqtt.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.sessions[id]; ok && entry.status == models.StatusConnected {
		return entry.session
	}
	return nil
}

// setStatus persists the last known status. Caller holds m.mu.
func (m *Manager) setStatus(ctx context.Context, id string, status models.ConnectionStatus) {
	if err := m.connections.SetStatus(ctx, id, status); err != nil {
		m.logger.Error("Failed to store connection status", "connectionId", id, "status", status, slog.Any("error", err))
	}
}
