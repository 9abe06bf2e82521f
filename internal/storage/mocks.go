package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockRedisClient is a mock implementation of RedisClient for testing
type MockRedisClient struct {
	mu sync.Mutex

	Data       map[string]string
	Sets       map[string]map[string]bool
	Published  []PubSubMessage
	PubSubData []PubSubMessage

	PublishErr   error
	GetErr       error
	SetErr       error
	SubscribeErr error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data: make(map[string]string),
		Sets: make(map[string]map[string]bool),
	}
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = string(jsonData)
	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Data[key], nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if m.GetErr != nil {
		return m.GetErr
	}
	m.mu.Lock()
	value, exists := m.Data[key]
	m.mu.Unlock()
	if !exists {
		return nil // Return nil if key doesn't exist (like real implementation)
	}
	return json.Unmarshal([]byte(value), dest)
}

func (m *MockRedisClient) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	delete(m.Sets, key)
	return nil
}

func (m *MockRedisClient) Exists(ctx context.Context, key string) (bool, error) {
	if m.GetErr != nil {
		return false, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.Data[key]
	if !exists {
		exists = len(m.Sets[key]) > 0
	}
	return exists, nil
}

func (m *MockRedisClient) SetAdd(ctx context.Context, key string, members ...string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.Sets[key]
	if !ok {
		set = make(map[string]bool)
		m.Sets[key] = set
	}
	for _, member := range members {
		set[member] = true
	}
	return nil
}

func (m *MockRedisClient) SetMembers(ctx context.Context, key string) ([]string, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	members := make([]string, 0, len(m.Sets[key]))
	for member := range m.Sets[key] {
		members = append(members, member)
	}
	return members, nil
}

func (m *MockRedisClient) SetRemove(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.Sets[key], member)
	}
	return nil
}

func (m *MockRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PubSubMessage{Channel: channel, Message: string(jsonData)})
	return nil
}

// PublishedMessages returns a copy of everything passed to Publish
func (m *MockRedisClient) PublishedMessages() []PubSubMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PubSubMessage(nil), m.Published...)
}

func (m *MockRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan PubSubMessage, error) {
	if m.SubscribeErr != nil {
		return nil, m.SubscribeErr
	}
	ch := make(chan PubSubMessage, len(m.PubSubData))
	for _, msg := range m.PubSubData {
		ch <- msg
	}
	close(ch)
	return ch, nil
}

func (m *MockRedisClient) Close() error {
	return nil
}

// MockKVStore wraps a MemoryKVStore with injectable errors
type MockKVStore struct {
	*MemoryKVStore
	GetErr   error
	SetErr   error
	ClearErr error
}

func NewMockKVStore() *MockKVStore {
	return &MockKVStore{MemoryKVStore: NewMemoryKVStore("test")}
}

func (m *MockKVStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	if m.GetErr != nil {
		return false, m.GetErr
	}
	return m.MemoryKVStore.Get(ctx, key, dest)
}

func (m *MockKVStore) Set(ctx context.Context, key string, value any) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	return m.MemoryKVStore.Set(ctx, key, value)
}

func (m *MockKVStore) Clear(ctx context.Context) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	return m.MemoryKVStore.Clear(ctx)
}
