package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/renato0307/conduit/internal/ports"
)

// MemoryKVStore is a ports.KVStore kept in process memory. Values round-trip
// through JSON so callers see the same decoding behaviour as with SQLite.
type MemoryKVStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ ports.KVStore = (*MemoryKVStore)(nil)

// NewMemoryKVStore creates an empty store
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{entries: map[string][]byte{}}
}

// Get implements ports.KVStore
func (s *MemoryKVStore) Get(_ context.Context, key string, dst any) (bool, error) {
	s.mu.RLock()
	data, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode key %s: %w", key, err)
	}
	return true, nil
}

// Set implements ports.KVStore
func (s *MemoryKVStore) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode key %s: %w", key, err)
	}
	s.mu.Lock()
	s.entries[key] = data
	s.mu.Unlock()
	return nil
}

// Remove implements ports.KVStore
func (s *MemoryKVStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Has reports whether key is set
func (s *MemoryKVStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}
