package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container and returns a pool connected to
// it. Tests are skipped when no container runtime is available.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	return db
}

func TestPostgresKVStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	store, err := NewPostgresKVStoreWithDB(ctx, db, "app")
	require.NoError(t, err)
	// a namespace sharing the prefix without the separator
	neighbour, err := NewPostgresKVStoreWithDB(ctx, db, "ap")
	require.NoError(t, err)
	defer store.Close()

	t.Run("missing key", func(t *testing.T) {
		var dest map[string]any
		found, err := store.Get(ctx, "nope", &dest)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("upsert replaces the value", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "columns", map[string]any{"version": 1}))
		require.NoError(t, store.Set(ctx, "columns", map[string]any{"version": 2}))

		var dest map[string]any
		found, err := store.Get(ctx, "columns", &dest)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 2.0, dest["version"])

		var rows int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT count(*) FROM kv_store WHERE key = $1`, "app:columns").Scan(&rows))
		assert.Equal(t, 1, rows)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		require.NoError(t, neighbour.Set(ctx, "columns", "other"))

		var dest string
		found, err := neighbour.Get(ctx, "columns", &dest)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "other", dest)

		var mine map[string]any
		_, err = store.Get(ctx, "columns", &mine)
		require.NoError(t, err)
		assert.Equal(t, 2.0, mine["version"])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "filters", []string{"a"}))
		require.NoError(t, store.Delete(ctx, "filters"))
		require.NoError(t, store.Delete(ctx, "filters"), "deleting an absent key is not an error")

		var dest []string
		found, err := store.Get(ctx, "filters", &dest)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("clear only removes its own namespace", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "filters", []string{"a"}))
		require.NoError(t, store.Clear(ctx))

		var dest any
		found, err := store.Get(ctx, "columns", &dest)
		require.NoError(t, err)
		assert.False(t, found)
		found, err = store.Get(ctx, "filters", &dest)
		require.NoError(t, err)
		assert.False(t, found)

		found, err = neighbour.Get(ctx, "columns", &dest)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("decode error", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "columns", "text"))

		var dest map[string]any
		found, err := store.Get(ctx, "columns", &dest)
		assert.True(t, found)
		assert.Error(t, err)
	})
}
