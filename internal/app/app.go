// Package app wires the definition stores, price provider, evaluation
// engine and refresh loop from configuration. Both binaries build on it.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mohamedkhairy/flip-finder/internal/columns"
	"github.com/mohamedkhairy/flip-finder/internal/config"
	"github.com/mohamedkhairy/flip-finder/internal/definitions"
	"github.com/mohamedkhairy/flip-finder/internal/prices"
	"github.com/mohamedkhairy/flip-finder/internal/pubsub"
	"github.com/mohamedkhairy/flip-finder/internal/scanner"
	"github.com/mohamedkhairy/flip-finder/internal/storage"
	"github.com/mohamedkhairy/flip-finder/pkg/expr"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// mockItemCount is the size of the generated market when PRICES_USE_MOCK is set
const mockItemCount = 500

// Options overrides dependencies that are otherwise built from config
type Options struct {
	// RedisClient replaces the client dialled from cfg.Redis
	RedisClient storage.RedisClient
	// Provider replaces the wiki client or the generated mock market
	Provider prices.Provider
	// RefreshInterval overrides how often prices are refetched
	RefreshInterval time.Duration
}

// Services is the wired application
type Services struct {
	Columns  *definitions.ColumnRepository
	Filters  *definitions.FilterRepository
	Provider prices.Provider
	Series   *prices.SeriesCache
	Engine   *scanner.Engine
	Loop     *scanner.RefreshLoop

	notifier *definitions.RedisNotifier
	closers  []io.Closer
}

// New builds every service. The refresh loop is created but not started.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Services, error) {
	s := &Services{}

	redisClient := opts.RedisClient
	needRedis := cfg.Storage.Backend == config.StorageRedis || cfg.Storage.Notify
	if needRedis && redisClient == nil {
		client, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		redisClient = client
		if cfg.Storage.Backend != config.StorageRedis {
			s.closers = append(s.closers, client)
		}
	}

	store, err := newStore(cfg, redisClient)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, store)

	var notifier definitions.Notifier
	if cfg.Storage.Notify {
		s.notifier = definitions.NewRedisNotifier(redisClient)
		notifier = s.notifier
	}
	s.Columns = definitions.NewColumnRepository(store, notifier)
	s.Filters = definitions.NewFilterRepository(store, notifier)

	if cfg.Storage.SeedFile != "" {
		if _, err := definitions.ImportSeedFile(ctx, cfg.Storage.SeedFile, s.Columns, s.Filters); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.Provider = opts.Provider
	if s.Provider == nil {
		if cfg.Prices.UseMock {
			s.Provider = prices.NewRandomMockProvider(mockItemCount, time.Now().UnixNano())
		} else {
			s.Provider = prices.NewWikiClient(cfg.Prices)
		}
	}

	interval := opts.RefreshInterval
	if interval <= 0 {
		interval = cfg.Scanner.RefreshInterval
	}

	s.Series = prices.NewSeriesCache(s.Provider, prices.Timestep5m, interval)
	evaluator := columns.NewEvaluator(cfg.Engine.MaxDepth, expr.NewCache(cfg.Engine.CacheMaxItems))
	s.Engine = scanner.NewEngine(evaluator, s.Series, cfg.Engine.Workers)

	loopConfig := scanner.DefaultRefreshLoopConfig()
	loopConfig.Interval = interval
	loopConfig.FetchTimeout = 2 * cfg.Prices.Timeout
	s.Loop = scanner.NewRefreshLoop(loopConfig, s.Provider, s.Engine, s.Columns, s.Filters)

	logger.Info("Services wired",
		logger.String("storage_backend", cfg.Storage.Backend),
		logger.String("namespace", cfg.Storage.Namespace),
		logger.String("provider", s.Provider.Name()),
		logger.Bool("notify", cfg.Storage.Notify),
		logger.Duration("refresh_interval", interval),
	)
	return s, nil
}

func newStore(cfg *config.Config, redisClient storage.RedisClient) (storage.KVStore, error) {
	ns := cfg.Storage.Namespace
	switch cfg.Storage.Backend {
	case config.StorageRedis:
		return storage.NewRedisKVStore(redisClient, ns), nil
	case config.StoragePostgres:
		store, err := storage.NewPostgresKVStore(cfg.Database, ns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return store, nil
	default:
		return storage.NewMemoryKVStore(ns), nil
	}
}

// ListenForChanges triggers a re-evaluation for every definition change
// published by any process sharing the store. It is a no-op unless change
// notification is enabled, and returns once the subscription is running.
func (s *Services) ListenForChanges(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	changes, err := s.notifier.Listen(ctx)
	if err != nil {
		return err
	}

	go func() {
		for change := range changes {
			logger.Debug("Definition change received",
				logger.String("kind", change.Kind),
				logger.String("action", change.Action),
				logger.String("id", change.ID),
			)
			s.Loop.Trigger()
		}
	}()
	return nil
}

// Close stops the refresh loop and releases storage connections
func (s *Services) Close() {
	if s.Loop != nil {
		s.Loop.Stop()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			logger.Warn("Error closing resource", logger.ErrorField(err))
		}
	}
	s.closers = nil
}
