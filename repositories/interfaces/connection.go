package interfaces

import (
	"context"

	"mqtt-panel/models"
)

// ConnectionRepositoryInterface defines the contract for the connection catalog.
type ConnectionRepositoryInterface interface {
	// Load reads the catalog from storage. Statuses are reset to disconnected.
	Load(ctx context.Context) error

	// Create stores a new connection and returns it with its assigned id.
	Create(ctx context.Context, conn models.Connection) (models.Connection, error)

	// Get returns the connection or a ConfigError.
	Get(id string) (models.Connection, error)

	// Exists reports whether the id is known.
	Exists(id string) bool

	// List returns all connections ordered by creation time.
	List() []models.Connection

	// Update merges a partial edit. Status and identity are never changed.
	Update(ctx context.Context, id string, update models.ConnectionUpdate) (models.Connection, error)

	// SetStatus records the last known session status.
	SetStatus(ctx context.Context, id string, status models.ConnectionStatus) error

	// Delete removes the connection. removed is false for unknown ids.
	Delete(ctx context.Context, id string) (removed bool, err error)

	// ReplaceAll swaps the whole catalog.
	ReplaceAll(ctx context.Context, conns []models.Connection) error
}
