package services

import (
	"context"
	"fmt"
	"log/slog"

	"mqtt-panel/models"
)

// ===================================================================
// SWITCHES
// ===================================================================

// AddSwitch stores a switch and subscribes its topic when the Connection is connected.
func (m *Manager) AddSwitch(ctx context.Context, panel models.SwitchPanel) (models.SwitchPanel, error) {
	if _, err := m.connections.Get(panel.ConnectionID); err != nil {
		return models.SwitchPanel{}, err
	}
	created, err := m.panels.CreateSwitch(ctx, panel)
	if err != nil {
		return models.SwitchPanel{}, err
	}
	m.subscribeIfLive(created.ConnectionID, created.EffectiveTopic(), created.QoS)
	m.notify(models.LevelSuccess, fmt.Sprintf("Switch %s added", created.Name), created.ConnectionID, "")
	return created, nil
}

// UpdateSwitch merges the edit. Subscriptions are left alone; see Resubscribe.
func (m *Manager) UpdateSwitch(ctx context.Context, id string, update models.SwitchUpdate) (models.SwitchPanel, error) {
	updated, err := m.panels.UpdateSwitch(ctx, id, update)
	if err != nil {
		return models.SwitchPanel{}, err
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("Switch %s updated", updated.Name), updated.ConnectionID, "")
	return updated, nil
}

// RemoveSwitch deletes the switch and drops its subscription unless another panel still needs it.
// Unknown ids are ignored.
func (m *Manager) RemoveSwitch(ctx context.Context, id string) error {
	removed, ok, err := m.panels.DeleteSwitch(ctx, id)
	if err != nil || !ok {
		return err
	}
	m.unsubscribeIfUnused(removed.ConnectionID, removed.EffectiveTopic())
	m.notify(models.LevelInfo, fmt.Sprintf("Switch %s removed", removed.Name), removed.ConnectionID, "")
	return nil
}

func (m *Manager) GetSwitch(id string) (models.SwitchPanel, error) {
	return m.panels.GetSwitch(id)
}

func (m *Manager) ListSwitches(connectionID string) []models.SwitchPanel {
	return m.panels.ListSwitches(connectionID)
}

// ToggleSwitch publishes the opposite state and flips the local state whether or not the
// publish succeeded. A publish failure is returned together with the updated panel.
func (m *Manager) ToggleSwitch(ctx context.Context, id string) (models.SwitchPanel, error) {
	panel, err := m.panels.GetSwitch(id)
	if err != nil {
		return models.SwitchPanel{}, err
	}
	if panel.Inert {
		return models.SwitchPanel{}, models.NewDanglingError("switch", id, panel.ConnectionID)
	}

	next := !panel.State
	payload := panel.PayloadOff
	if next {
		payload = panel.PayloadOn
	}
	publishErr := m.Publish(ctx, panel.ConnectionID, panel.Topic, payload, panel.QoS, panel.Retain)

	updated, err := m.panels.SetSwitchState(ctx, id, next)
	if err != nil {
		return models.SwitchPanel{}, err
	}
	return updated, publishErr
}

func (m *Manager) ReorderSwitches(ctx context.Context, ids []string) error {
	return m.panels.ReorderSwitches(ctx, ids)
}

// ===================================================================
// BUTTONS
// ===================================================================

func (m *Manager) AddButton(ctx context.Context, panel models.ButtonPanel) (models.ButtonPanel, error) {
	if _, err := m.connections.Get(panel.ConnectionID); err != nil {
		return models.ButtonPanel{}, err
	}
	created, err := m.panels.CreateButton(ctx, panel)
	if err != nil {
		return models.ButtonPanel{}, err
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("Button %s added", created.Name), created.ConnectionID, "")
	return created, nil
}

func (m *Manager) UpdateButton(ctx context.Context, id string, update models.ButtonUpdate) (models.ButtonPanel, error) {
	updated, err := m.panels.UpdateButton(ctx, id, update)
	if err != nil {
		return models.ButtonPanel{}, err
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("Button %s updated", updated.Name), updated.ConnectionID, "")
	return updated, nil
}

func (m *Manager) RemoveButton(ctx context.Context, id string) error {
	removed, ok, err := m.panels.DeleteButton(ctx, id)
	if err != nil || !ok {
		return err
	}
	m.notify(models.LevelInfo, fmt.Sprintf("Button %s removed", removed.Name), removed.ConnectionID, "")
	return nil
}

func (m *Manager) GetButton(id string) (models.ButtonPanel, error) {
	return m.panels.GetButton(id)
}

func (m *Manager) ListButtons(connectionID string) []models.ButtonPanel {
	return m.panels.ListButtons(connectionID)
}

// TriggerButton publishes the button's fixed payload.
func (m *Manager) TriggerButton(ctx context.Context, id string) error {
	panel, err := m.panels.GetButton(id)
	if err != nil {
		return err
	}
	if panel.Inert {
		return models.NewDanglingError("button", id, panel.ConnectionID)
	}
	return m.Publish(ctx, panel.ConnectionID, panel.Topic, panel.Payload, panel.QoS, panel.Retain)
}

// ===================================================================
// URI LAUNCHERS
// ===================================================================

func (m *Manager) AddUriLauncher(ctx context.Context, panel models.UriLauncherPanel) (models.UriLauncherPanel, error) {
	if _, err := m.connections.Get(panel.ConnectionID); err != nil {
		return models.UriLauncherPanel{}, err
	}
	created, err := m.panels.CreateUriLauncher(ctx, panel)
	if err != nil {
		return models.UriLauncherPanel{}, err
	}
	m.subscribeIfLive(created.ConnectionID, created.Topic, created.QoS)
	m.notify(models.LevelSuccess, fmt.Sprintf("URI launcher %s added", created.Name), created.ConnectionID, "")
	return created, nil
}

func (m *Manager) UpdateUriLauncher(ctx context.Context, id string, update models.UriLauncherUpdate) (models.UriLauncherPanel, error) {
	updated, err := m.panels.UpdateUriLauncher(ctx, id, update)
	if err != nil {
		return models.UriLauncherPanel{}, err
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("URI launcher %s updated", updated.Name), updated.ConnectionID, "")
	return updated, nil
}

func (m *Manager) RemoveUriLauncher(ctx context.Context, id string) error {
	removed, ok, err := m.panels.DeleteUriLauncher(ctx, id)
	if err != nil || !ok {
		return err
	}
	m.unsubscribeIfUnused(removed.ConnectionID, removed.Topic)
	m.notify(models.LevelInfo, fmt.Sprintf("URI launcher %s removed", removed.Name), removed.ConnectionID, "")
	return nil
}

func (m *Manager) GetUriLauncher(id string) (models.UriLauncherPanel, error) {
	return m.panels.GetUriLauncher(id)
}

func (m *Manager) ListUriLaunchers(connectionID string) []models.UriLauncherPanel {
	return m.panels.ListUriLaunchers(connectionID)
}

// LaunchURI returns the last uri received by the launcher.
func (m *Manager) LaunchURI(id string) (string, error) {
	panel, err := m.panels.GetUriLauncher(id)
	if err != nil {
		return "", err
	}
	if panel.URI == "" {
		return "", &models.ConfigError{Entity: "uriLauncher", ID: id, Reason: "no uri received yet"}
	}
	return panel.URI, nil
}

// ===================================================================
// SUBSCRIPTIONS
// ===================================================================

// Resubscribe subscribes the current topic of a switch or uri launcher. Nothing happens
// while the Connection is not connected; the next connect subscribes every panel anyway.
func (m *Manager) Resubscribe(ctx context.Context, panelID string) error {
	var (
		connectionID, filter string
		qos                  models.QoS
		inert                bool
	)
	if sw, err := m.panels.GetSwitch(panelID); err == nil {
		connectionID, filter, qos, inert = sw.ConnectionID, sw.EffectiveTopic(), sw.QoS, sw.Inert
	} else if launcher, err := m.panels.GetUriLauncher(panelID); err == nil {
		connectionID, filter, qos, inert = launcher.ConnectionID, launcher.Topic, launcher.QoS, launcher.Inert
	} else {
		return models.NewNotFoundError("panel", panelID)
	}
	if inert {
		return models.NewDanglingError("panel", panelID, connectionID)
	}

	session := m.liveSessionFor(connectionID)
	if session == nil {
		m.logger.Info("Connection not connected, subscription deferred to next connect", "connectionId", connectionID, "topic", filter)
		return nil
	}
	if !m.subscribe(session, connectionID, filter, qos) {
		m.notify(models.LevelError, fmt.Sprintf("Failed to subscribe to %s", filter), connectionID, "")
		return nil
	}
	m.notify(models.LevelSuccess, fmt.Sprintf("Subscribed to %s", filter), connectionID, "")
	return nil
}

func (m *Manager) subscribeIfLive(connectionID, filter string, qos models.QoS) {
	if session := m.liveSessionFor(connectionID); session != nil {
		m.subscribe(session, connectionID, filter, qos)
	}
}

func (m *Manager) unsubscribeIfUnused(connectionID, filter string) {
	if m.panels.TopicInUse(connectionID, filter, "") {
		return
	}
	session := m.liveSessionFor(connectionID)
	if session == nil {
		return
	}
	if err := session.Unsubscribe(filter); err != nil {
		m.logger.Warn("Failed to unsubscribe from topic", "connectionId", connectionID, "topic", filter, slog.Any("error", err))
	}
}
