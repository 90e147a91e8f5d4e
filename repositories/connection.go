package repositories

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"mqtt-panel/models"
	"mqtt-panel/repositories/base"
	"mqtt-panel/repositories/interfaces"
	"mqtt-panel/storage"
	"mqtt-panel/utils"
)

// ConnectionRepository implements ConnectionRepositoryInterface.
type ConnectionRepository struct {
	catalog *base.Catalog[models.Connection]
	now     func() time.Time
}

// NewConnectionRepository creates a new instance of ConnectionRepository.
func NewConnectionRepository(store storage.Store, logger *slog.Logger) *ConnectionRepository {
	return &ConnectionRepository{
		catalog: base.NewCatalog(store, storage.ConnectionsKey, "connections",
			func(c *models.Connection) string { return c.ID }, logger.With("component", "connection_repository")),
		now: time.Now,
	}
}

func (r *ConnectionRepository) Load(ctx context.Context) error {
	return r.catalog.Load(ctx, normalizeStored)
}

// normalizeStored prepares a record read from storage or a backup for use.
func normalizeStored(c *models.Connection) {
	c.Status = models.StatusDisconnected
	c.Protocol = c.Protocol.Normalize()
	if strings.TrimSpace(c.ClientID) == "" {
		c.ClientID = utils.GenerateClientID()
	}
}

func (r *ConnectionRepository) Create(ctx context.Context, conn models.Connection) (models.Connection, error) {
	conn.Protocol = conn.Protocol.Normalize()
	if err := conn.Validate(); err != nil {
		return models.Connection{}, err
	}
	if conn.ID == "" {
		conn.ID = utils.GenerateConnectionID()
	}
	if strings.TrimSpace(conn.ClientID) == "" {
		conn.ClientID = utils.GenerateClientID()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = r.now()
	}
	conn.Status = models.StatusDisconnected

	if err := r.catalog.Create(ctx, conn); err != nil {
		return models.Connection{}, err
	}
	return conn, nil
}

func (r *ConnectionRepository) Get(id string) (models.Connection, error) {
	conn, ok := r.catalog.Get(id)
	if !ok {
		return models.Connection{}, models.NewNotFoundError("connection", id)
	}
	return conn, nil
}

func (r *ConnectionRepository) Exists(id string) bool {
	return r.catalog.Exists(id)
}

// List returns connections ordered by creation time.
func (r *ConnectionRepository) List() []models.Connection {
	conns := r.catalog.List()
	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].CreatedAt.Before(conns[j].CreatedAt)
	})
	return conns
}

func (r *ConnectionRepository) Update(ctx context.Context, id string, update models.ConnectionUpdate) (models.Connection, error) {
	conn, found, err := r.catalog.Update(ctx, id, func(c *models.Connection) error {
		update.Apply(c)
		if strings.TrimSpace(c.ClientID) == "" {
			c.ClientID = utils.GenerateClientID()
		}
		return c.Validate()
	})
	if !found {
		return models.Connection{}, models.NewNotFoundError("connection", id)
	}
	return conn, err
}

func (r *ConnectionRepository) SetStatus(ctx context.Context, id string, status models.ConnectionStatus) error {
	_, found, err := r.catalog.Update(ctx, id, func(c *models.Connection) error {
		c.Status = status
		return nil
	})
	if !found {
		return models.NewNotFoundError("connection", id)
	}
	return err
}

func (r *ConnectionRepository) Delete(ctx context.Context, id string) (bool, error) {
	_, removed, err := r.catalog.Delete(ctx, id)
	return removed, err
}

// ReplaceAll swaps the whole catalog. Records are normalized but not validated;
// callers drop invalid records first.
func (r *ConnectionRepository) ReplaceAll(ctx context.Context, conns []models.Connection) error {
	next := append([]models.Connection(nil), conns...)
	for i := range next {
		normalizeStored(&next[i])
		if next[i].CreatedAt.IsZero() {
			next[i].CreatedAt = r.now()
		}
	}
	return r.catalog.Replace(ctx, next)
}

var _ interfaces.ConnectionRepositoryInterface = (*ConnectionRepository)(nil)
