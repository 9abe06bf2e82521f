package storage

import (
	"context"
	"fmt"
)

const keysIndex = "__keys"

// RedisKVStore stores definitions in Redis. Every written key is also
// recorded in an index set so Clear can remove the namespace without SCAN.
type RedisKVStore struct {
	client    RedisClient
	namespace string
}

// NewRedisKVStore creates a store over an existing Redis client
func NewRedisKVStore(client RedisClient, namespace string) *RedisKVStore {
	return &RedisKVStore{client: client, namespace: namespace}
}

func (r *RedisKVStore) key(key string) string {
	return Key(r.namespace, key)
}

// Get decodes the value stored under key into dest
func (r *RedisKVStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	ok, err := r.client.Exists(ctx, r.key(key))
	if err != nil {
		observe("redis", "get", err)
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	if !ok {
		observe("redis", "get", nil)
		return false, nil
	}

	err = r.client.GetJSON(ctx, r.key(key), dest)
	observe("redis", "get", err)
	if err != nil {
		return true, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key without expiry
func (r *RedisKVStore) Set(ctx context.Context, key string, value any) error {
	if err := r.client.Set(ctx, r.key(key), value, 0); err != nil {
		observe("redis", "set", err)
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	err := r.client.SetAdd(ctx, r.key(keysIndex), key)
	observe("redis", "set", err)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (r *RedisKVStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, r.key(key)); err != nil {
		observe("redis", "delete", err)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	err := r.client.SetRemove(ctx, r.key(keysIndex), key)
	observe("redis", "delete", err)
	if err != nil {
		return fmt.Errorf("failed to unindex %s: %w", key, err)
	}
	return nil
}

// Clear removes every key recorded in the namespace index
func (r *RedisKVStore) Clear(ctx context.Context) error {
	keys, err := r.client.SetMembers(ctx, r.key(keysIndex))
	if err != nil {
		observe("redis", "clear", err)
		return fmt.Errorf("failed to list keys: %w", err)
	}
	for _, k := range keys {
		if err := r.client.Delete(ctx, r.key(k)); err != nil {
			observe("redis", "clear", err)
			return fmt.Errorf("failed to delete %s: %w", k, err)
		}
	}
	err = r.client.Delete(ctx, r.key(keysIndex))
	observe("redis", "clear", err)
	return err
}

// Close closes the underlying client
func (r *RedisKVStore) Close() error {
	return r.client.Close()
}
