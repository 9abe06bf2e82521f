package pubsub

import (
	"testing"

	"github.com/mohamedkhairy/flip-finder/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full round-trips need a running Redis; these cover construction only.

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient(config.RedisConfig{
		Host:     "127.0.0.1",
		Port:     1,
		PoolSize: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestWrapClient(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client := WrapClient(rdb)
	require.NotNil(t, client)
	assert.NoError(t, client.Close())
}
