package rooms

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore keeps rooms in memory only. It stands in when the
// configured store cannot be opened.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]Point
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]Point)}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context) (map[string]Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.rooms), nil
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, name string, p Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[name] = p
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
