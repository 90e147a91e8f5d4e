package base

import (
	"context"
	"log/slog"
	"sync"

	"mqtt-panel/models"
	"mqtt-panel/storage"
)

// Catalog is an ordered in-memory collection persisted under one store key.
// Every mutation is written through while the lock is held; a failed write leaves
// the previous contents in place.
type Catalog[T any] struct {
	mu     sync.RWMutex
	items  []T
	store  storage.Store
	key    string
	table  string
	idOf   func(*T) string
	logger *slog.Logger
}

func NewCatalog[T any](store storage.Store, key, table string, idOf func(*T) string, logger *slog.Logger) *Catalog[T] {
	return &Catalog[T]{
		store:  store,
		key:    key,
		table:  table,
		idOf:   idOf,
		logger: logger.With("table", table),
	}
}

// Load replaces the contents with the stored records. Records without an id are dropped.
// fix runs on every kept record before it becomes visible.
func (c *Catalog[T]) Load(ctx context.Context, fix func(*T)) error {
	records, issues, err := storage.LoadRecords[T](ctx, c.store, c.key)
	if err != nil {
		return WrapStoreError("load", c.table, err)
	}
	for _, issue := range issues {
		c.logger.Warn("Stored record was not loaded as saved", "index", issue.Index, "dropped", issue.Dropped, slog.Any("error", issue.Err))
	}

	kept := make([]T, 0, len(records))
	for i := range records {
		if c.idOf(&records[i]) == "" {
			c.logger.Warn("Dropping stored record without id", "index", i)
			continue
		}
		if fix != nil {
			fix(&records[i])
		}
		kept = append(kept, records[i])
	}

	c.mu.Lock()
	c.items = kept
	c.mu.Unlock()
	return nil
}

func (c *Catalog[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog[T]) Find(match func(*T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []T
	for i := range c.items {
		if match(&c.items[i]) {
			out = append(out, c.items[i])
		}
	}
	return out
}

func (c *Catalog[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Catalog[T]) Exists(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexOf(id) >= 0
}

// Create appends item. An id already in the catalog is a validation error.
func (c *Catalog[T]) Create(ctx context.Context, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id := c.idOf(&item); c.indexOf(id) >= 0 {
		return models.NewValidationError("id", id, "id already exists")
	}
	next := make([]T, len(c.items), len(c.items)+1)
	copy(next, c.items)
	next = append(next, item)
	return c.commit(ctx, "create", next)
}

// Update applies fn to a copy of the record with the given id. found is false for unknown ids.
// An error from fn aborts the update.
func (c *Catalog[T]) Update(ctx context.Context, id string, fn func(*T) error) (updated T, found bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return updated, false, nil
	}
	next := c.clone()
	if err := fn(&next[i]); err != nil {
		return updated, true, err
	}
	if err := c.commit(ctx, "update", next); err != nil {
		return updated, true, err
	}
	return next[i], true, nil
}

// UpdateWhere applies fn to every record; fn reports whether it changed the record.
// The catalog is persisted once when anything changed.
func (c *Catalog[T]) UpdateWhere(ctx context.Context, fn func(*T) bool) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.clone()
	var changed []T
	for i := range next {
		if fn(&next[i]) {
			changed = append(changed, next[i])
		}
	}
	if len(changed) == 0 {
		return nil, nil
	}
	if err := c.commit(ctx, "update", next); err != nil {
		return nil, err
	}
	return changed, nil
}

func (c *Catalog[T]) Delete(ctx context.Context, id string) (T, bool, error) {
	removed, err := c.DeleteWhere(ctx, func(item *T) bool { return c.idOf(item) == id })
	if err != nil || len(removed) == 0 {
		var zero T
		return zero, false, err
	}
	return removed[0], true, nil
}

func (c *Catalog[T]) DeleteWhere(ctx context.Context, match func(*T) bool) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]T, 0, len(c.items))
	var removed []T
	for i := range c.items {
		if match(&c.items[i]) {
			removed = append(removed, c.items[i])
			continue
		}
		next = append(next, c.items[i])
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := c.commit(ctx, "delete", next); err != nil {
		return nil, err
	}
	return removed, nil
}

// Replace swaps the whole contents.
func (c *Catalog[T]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]T, len(items))
	copy(next, items)
	return c.commit(ctx, "replace", next)
}

func (c *Catalog[T]) commit(ctx context.Context, operation string, next []T) error {
	if err := storage.SaveRecords(ctx, c.store, c.key, next); err != nil {
		return WrapStoreError(operation, c.table, err)
	}
	c.items = next
	return nil
}

func (c *Catalog[T]) clone() []T {
	next := make([]T, len(c.items))
	copy(next, c.items)
	return next
}

func (c *Catalog[T]) indexOf(id string) int {
	for i := range c.items {
		if c.idOf(&c.items[i]) == id {
			return i
		}
	}
	return -1
}
