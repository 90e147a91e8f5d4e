package interfaces

import (
	"context"

	"mqtt-panel/models"
)

// Subscription is one topic a connection must be subscribed to.
type Subscription struct {
	Topic string
	QoS   models.QoS
}

// PanelRepositoryInterface defines the contract for the three panel catalogs.
type PanelRepositoryInterface interface {
	// Load reads every panel catalog. exists decides whether a panel's connection is known.
	Load(ctx context.Context, exists func(connectionID string) bool) error

	CreateSwitch(ctx context.Context, panel models.SwitchPanel) (models.SwitchPanel, error)
	GetSwitch(id string) (models.SwitchPanel, error)
	ListSwitches(connectionID string) []models.SwitchPanel
	UpdateSwitch(ctx context.Context, id string, update models.SwitchUpdate) (models.SwitchPanel, error)
	DeleteSwitch(ctx context.Context, id string) (models.SwitchPanel, bool, error)
	SetSwitchState(ctx context.Context, id string, state bool) (models.SwitchPanel, error)
	// UpdateSwitches applies fn to every switch and persists the ones it changed.
	UpdateSwitches(ctx context.Context, fn func(*models.SwitchPanel) bool) ([]models.SwitchPanel, error)
	ReorderSwitches(ctx context.Context, ids []string) error

	CreateButton(ctx context.Context, panel models.ButtonPanel) (models.ButtonPanel, error)
	GetButton(id string) (models.ButtonPanel, error)
	ListButtons(connectionID string) []models.ButtonPanel
	UpdateButton(ctx context.Context, id string, update models.ButtonUpdate) (models.ButtonPanel, error)
	DeleteButton(ctx context.Context, id string) (models.ButtonPanel, bool, error)

	CreateUriLauncher(ctx context.Context, panel models.UriLauncherPanel) (models.UriLauncherPanel, error)
	GetUriLauncher(id string) (models.UriLauncherPanel, error)
	ListUriLaunchers(connectionID string) []models.UriLauncherPanel
	UpdateUriLauncher(ctx context.Context, id string, update models.UriLauncherUpdate) (models.UriLauncherPanel, error)
	DeleteUriLauncher(ctx context.Context, id string) (models.UriLauncherPanel, bool, error)
	// SetURI stores uri on every launcher of the connection whose topic matches name.
	SetURI(ctx context.Context, connectionID, name, uri string) ([]models.UriLauncherPanel, error)

	// DeleteByConnection removes every panel of a connection and returns how many were removed.
	DeleteByConnection(ctx context.Context, connectionID string) (int, error)
	// TopicInUse reports whether any subscribing panel of the connection other than excludeID
	// listens on topic.
	TopicInUse(connectionID, filter, excludeID string) bool
	// Subscriptions lists the distinct topics of a connection with the highest requested qos.
	Subscriptions(connectionID string) []Subscription
	// MarkStale flags every switch of the connection as stale.
	MarkStale(ctx context.Context, connectionID string) error
	ReplaceAll(ctx context.Context, switches []models.SwitchPanel, buttons []models.ButtonPanel, launchers []models.UriLauncherPanel, exists func(string) bool) error
}
