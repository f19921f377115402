package storage

import (
	"sort"
	"sync"
)

// MemoryStorage is an in-memory Storage implementation.
// Useful for testing. Data is lost when the process exits.
type MemoryStorage struct {
	mu      sync.RWMutex
	players map[string]*PlayerRecord
	closed  bool
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		players: make(map[string]*PlayerRecord),
	}
}

// SavePlayer stores a copy of r.
func (m *MemoryStorage) SavePlayer(r *PlayerRecord) error {
	if r == nil || r.ID == "" {
		return ErrInvalidRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.players[r.ID] = r.Clone()
	return nil
}

// LoadPlayer returns a copy of the stored record.
func (m *MemoryStorage) LoadPlayer(id string) (*PlayerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	r, ok := m.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// LoadPlayers returns copies of all records, ordered by ID.
func (m *MemoryStorage) LoadPlayers() ([]*PlayerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	result := make([]*PlayerRecord, 0, len(m.players))
	for _, r := range m.players {
		result = append(result, r.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// DeletePlayer removes a record.
func (m *MemoryStorage) DeletePlayer(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.players, id)
	return nil
}

// Close marks the storage closed.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Storage = (*MemoryStorage)(nil)
