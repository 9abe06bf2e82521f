package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryKVStore keeps definitions in process memory. Values are stored as
// encoded JSON so callers never share state with the store.
type MemoryKVStore struct {
	namespace string

	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemoryKVStore creates an empty in-memory store
func NewMemoryKVStore(namespace string) *MemoryKVStore {
	return &MemoryKVStore{
		namespace: namespace,
		data:      make(map[string][]byte),
	}
}

// Get decodes the value stored under key into dest
func (m *MemoryKVStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	raw, ok := m.data[Key(m.namespace, key)]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key
func (m *MemoryKVStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.data[Key(m.namespace, key)] = raw
	return nil
}

// Delete removes key
func (m *MemoryKVStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.data, Key(m.namespace, key))
	return nil
}

// Clear removes every key
func (m *MemoryKVStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.data = make(map[string][]byte)
	return nil
}

// Len returns the number of stored keys
func (m *MemoryKVStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close marks the store closed
func (m *MemoryKVStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
