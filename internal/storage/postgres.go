package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/mohamedkhairy/flip-finder/internal/config"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flip_finder_storage_operations_total",
			Help: "Definition storage operations by backend, operation and status",
		},
		[]string{"backend", "operation", "status"},
	)

	storageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flip_finder_storage_latency_seconds",
			Help:    "Definition storage latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"backend", "operation"},
	)
)

func observe(backend, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	storageOperations.WithLabelValues(backend, operation, status).Inc()
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// PostgresKVStore stores definitions as JSONB rows in the kv_store table
type PostgresKVStore struct {
	db        *sql.DB
	namespace string
}

// NewPostgresKVStore opens a connection pool, verifies it and ensures the
// kv_store table exists
func NewPostgresKVStore(dbConfig config.DatabaseConfig, namespace string) (*PostgresKVStore, error) {
	db, err := sql.Open("postgres", dbConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewPostgresKVStoreWithDB(ctx, db, namespace)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to PostgreSQL",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return store, nil
}

// NewPostgresKVStoreWithDB uses an existing pool and ensures the table exists
func NewPostgresKVStoreWithDB(ctx context.Context, db *sql.DB, namespace string) (*PostgresKVStore, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}
	return &PostgresKVStore{db: db, namespace: namespace}, nil
}

// Get decodes the value stored under key into dest
func (p *PostgresKVStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	start := time.Now()
	defer func() {
		storageLatency.WithLabelValues("postgres", "get").Observe(time.Since(start).Seconds())
	}()

	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = $1`, Key(p.namespace, key),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		observe("postgres", "get", nil)
		return false, nil
	}
	observe("postgres", "get", err)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return true, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Set upserts value under key
func (p *PostgresKVStore) Set(ctx context.Context, key string, value any) error {
	start := time.Now()
	defer func() {
		storageLatency.WithLabelValues("postgres", "set").Observe(time.Since(start).Seconds())
	}()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, Key(p.namespace, key), raw)
	observe("postgres", "set", err)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (p *PostgresKVStore) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, Key(p.namespace, key))
	observe("postgres", "delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the namespace
func (p *PostgresKVStore) Clear(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kv_store WHERE substr(key, 1, length($1)) = $1`, Key(p.namespace, ""))
	observe("postgres", "clear", err)
	if err != nil {
		return fmt.Errorf("failed to clear namespace %s: %w", p.namespace, err)
	}
	return nil
}

// Close closes the database connection
func (p *PostgresKVStore) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
