// Package storage is the persistence adapter of the dashboard: a key-value store whose
// values are JSON documents holding lists of records.
package storage

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Load when nothing was saved under the key.
	ErrNotFound = errors.New("not found")
)

// Store is the narrow contract the registries depend on. Backends do not interpret values.
type Store interface {
	// Load returns the document saved under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save replaces the document under key.
	Save(ctx context.Context, key string, value []byte) error
}

// MemStore keeps documents in a map. It is safe for concurrent use.
type MemStore struct {
	data map[string][]byte
	mu   sync.RWMutex
}

func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string][]byte),
	}
}

func (s *MemStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	return nil
}

// Keys lists the stored keys. Used by tests and diagnostics.
func (s *MemStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
