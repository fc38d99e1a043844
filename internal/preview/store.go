package preview

import (
	"context"
	"sync"
)

// CollapsedKey is the store key of the persisted collapse state.
const CollapsedKey = "anki-md-preview-collapsed"

// Store persists small string values. db.DB implements it.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = make(map[string]string)
	}
	s.m[key] = value
	return nil
}
