package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohamedkhairy/flip-finder/internal/config"
	"github.com/mohamedkhairy/flip-finder/internal/storage"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisClientImpl implements the storage.RedisClient interface on go-redis.
// Values are stored JSON-encoded.
type RedisClientImpl struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*RedisClientImpl, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis",
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.Int("db", cfg.DB),
	)

	return &RedisClientImpl{client: rdb}, nil
}

// WrapClient adapts an existing go-redis client
func WrapClient(rdb *redis.Client) *RedisClientImpl {
	return &RedisClientImpl{client: rdb}
}

var _ storage.RedisClient = (*RedisClientImpl)(nil)

// Set stores value as JSON. A zero ttl means no expiry.
func (r *RedisClientImpl) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Set(ctx, key, jsonData, ttl).Err()
}

// Get returns the raw value, or "" when the key is absent
func (r *RedisClientImpl) Get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return result, err
}

// GetJSON decodes the value into dest. dest is untouched when the key is absent.
func (r *RedisClientImpl) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisClientImpl) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisClientImpl) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	return count > 0, err
}

func (r *RedisClientImpl) SetAdd(ctx context.Context, key string, members ...string) error {
	return r.client.SAdd(ctx, key, members).Err()
}

func (r *RedisClientImpl) SetMembers(ctx context.Context, key string) ([]string, error) {
	return r.client.SMembers(ctx, key).Result()
}

func (r *RedisClientImpl) SetRemove(ctx context.Context, key string, members ...string) error {
	return r.client.SRem(ctx, key, members).Err()
}

// Publish sends message JSON-encoded on channel
func (r *RedisClientImpl) Publish(ctx context.Context, channel string, message interface{}) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return r.client.Publish(ctx, channel, jsonData).Err()
}

// Subscribe forwards messages from channels until ctx is done. The returned
// channel is closed when the subscription ends.
func (r *RedisClientImpl) Subscribe(ctx context.Context, channels ...string) (<-chan storage.PubSubMessage, error) {
	sub := r.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %v: %w", channels, err)
	}

	out := make(chan storage.PubSubMessage, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		in := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- storage.PubSubMessage{Channel: msg.Channel, Message: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (r *RedisClientImpl) Close() error {
	return r.client.Close()
}
