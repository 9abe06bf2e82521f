package storage

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by stores after Close
var ErrClosed = errors.New("storage: store is closed")

// KVStore defines the interface for definition storage. Values are JSON
// documents; keys are namespaced by the implementation.
type KVStore interface {
	// Get decodes the value stored under key into dest. It reports false
	// with a nil error when the key is absent.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value any) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key in the store's namespace
	Clear(ctx context.Context) error

	// Close releases the store's resources
	Close() error
}

// RedisClient defines the interface for Redis operations
type RedisClient interface {
	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Set operations
	SetAdd(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetRemove(ctx context.Context, key string, members ...string) error

	// Pub/Sub operations
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan PubSubMessage, error)

	// Close closes the Redis connection
	Close() error
}

// PubSubMessage represents a message from Redis pub/sub
type PubSubMessage struct {
	Channel string
	Message string
}

// Key joins a namespace and a key the way every store lays out its keys
func Key(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
