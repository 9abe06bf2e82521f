package scanner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/prices"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
)

// ColumnSource loads the current column definitions
type ColumnSource interface {
	Load(ctx context.Context) ([]models.ColumnDefinition, error)
}

// FilterSource loads the current saved filters
type FilterSource interface {
	Load(ctx context.Context) ([]models.SavedFilter, error)
}

// RefreshLoopConfig holds configuration for the refresh loop
type RefreshLoopConfig struct {
	Interval     time.Duration // How often prices are refetched (default: 60s)
	FetchTimeout time.Duration // Upper bound for one price fetch (default: 30s)
	MaxEvalTime  time.Duration // Evaluations slower than this are logged (default: 2s)
}

// DefaultRefreshLoopConfig returns default configuration
func DefaultRefreshLoopConfig() RefreshLoopConfig {
	return RefreshLoopConfig{
		Interval:     60 * time.Second,
		FetchTimeout: 30 * time.Second,
		MaxEvalTime:  2 * time.Second,
	}
}

// Snapshot is the latest set of items fetched from the provider
type Snapshot struct {
	Items     []models.Item
	FetchedAt time.Time
	Source    string
}

// Ready reports whether at least one fetch has succeeded
func (s Snapshot) Ready() bool {
	return !s.FetchedAt.IsZero()
}

// RefreshStats holds statistics about the refresh loop
type RefreshStats struct {
	Refreshes      int64
	FetchErrors    int64
	Evaluations    int64
	LastFetchTime  time.Duration
	LastEvalTime   time.Duration
	LastItemCount  int
	LastMatchCount int
}

// RefreshLoop keeps an item snapshot current and re-evaluates the default
// table after every fetch and whenever definitions change
type RefreshLoop struct {
	config   RefreshLoopConfig
	provider prices.Provider
	engine   *Engine
	columns  ColumnSource
	filters  FilterSource

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	trigger chan struct{}

	snapshot atomic.Pointer[Snapshot]
	table    atomic.Pointer[Table]

	stats   RefreshStats
	statsMu sync.RWMutex
}

// NewRefreshLoop creates a new refresh loop
func NewRefreshLoop(
	config RefreshLoopConfig,
	provider prices.Provider,
	engine *Engine,
	columns ColumnSource,
	filters FilterSource,
) *RefreshLoop {
	if provider == nil {
		panic("provider cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if columns == nil || filters == nil {
		panic("definition sources cannot be nil")
	}

	defaults := DefaultRefreshLoopConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}
	if config.MaxEvalTime <= 0 {
		config.MaxEvalTime = defaults.MaxEvalTime
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &RefreshLoop{
		config:   config,
		provider: provider,
		engine:   engine,
		columns:  columns,
		filters:  filters,
		ctx:      ctx,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
	}
	l.snapshot.Store(&Snapshot{})
	return l
}

// Start starts the refresh loop
func (l *RefreshLoop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("refresh loop is already running")
	}
	l.running = true

	logger.Info("Starting refresh loop",
		logger.String("provider", l.provider.Name()),
		logger.Duration("interval", l.config.Interval),
	)

	l.wg.Add(1)
	go l.run()
	return nil
}

// Stop stops the refresh loop and waits for the current pass to finish
func (l *RefreshLoop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	logger.Info("Stopping refresh loop")
	l.cancel()
	l.wg.Wait()
	logger.Info("Refresh loop stopped")
}

// IsRunning returns whether the refresh loop is running
func (l *RefreshLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Trigger requests a re-evaluation of the current snapshot. Requests made
// while one is pending are coalesced.
func (l *RefreshLoop) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest fetched items
func (l *RefreshLoop) Snapshot() Snapshot {
	return *l.snapshot.Load()
}

// Table returns the default table from the last evaluation, or nil
func (l *RefreshLoop) Table() *Table {
	return l.table.Load()
}

// GetStats returns a copy of the current statistics
func (l *RefreshLoop) GetStats() RefreshStats {
	l.statsMu.RLock()
	defer l.statsMu.RUnlock()
	return l.stats
}

func (l *RefreshLoop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	l.refresh(l.ctx)

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.refresh(l.ctx)
		case <-l.trigger:
			if err := l.Evaluate(l.ctx); err != nil && l.ctx.Err() == nil {
				logger.Warn("Re-evaluation failed", logger.ErrorField(err))
			}
		}
	}
}

func (l *RefreshLoop) refresh(ctx context.Context) {
	if err := l.Refresh(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Price refresh failed",
			logger.String("provider", l.provider.Name()),
			logger.ErrorField(err),
		)
	}
	if err := l.Evaluate(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("Evaluation failed", logger.ErrorField(err))
	}
}

// Refresh fetches a new snapshot. On failure the previous snapshot is kept.
func (l *RefreshLoop) Refresh(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, l.config.FetchTimeout)
	defer cancel()

	start := time.Now()
	items, err := l.provider.FetchItems(fetchCtx)
	elapsed := time.Since(start)

	l.statsMu.Lock()
	l.stats.Refreshes++
	l.stats.LastFetchTime = elapsed
	if err != nil {
		l.stats.FetchErrors++
	}
	l.statsMu.Unlock()

	if err != nil {
		return fmt.Errorf("fetch items: %w", err)
	}

	l.snapshot.Store(&Snapshot{
		Items:     items,
		FetchedAt: time.Now(),
		Source:    l.provider.Name(),
	})
	logger.Debug("Snapshot refreshed",
		logger.Int("items", len(items)),
		logger.Duration("fetch_time", elapsed),
	)
	return nil
}

// Evaluate recomputes the default table over the current snapshot with the
// current definitions
func (l *RefreshLoop) Evaluate(ctx context.Context) error {
	snap := l.Snapshot()
	if !snap.Ready() {
		return nil
	}

	cols, err := l.columns.Load(ctx)
	if err != nil {
		return fmt.Errorf("load columns: %w", err)
	}
	filters, err := l.filters.Load(ctx)
	if err != nil {
		return fmt.Errorf("load filters: %w", err)
	}

	start := time.Now()
	table, err := l.engine.Evaluate(ctx, Request{
		Items:   snap.Items,
		Columns: cols,
		Filters: filters,
		SortBy:  DefaultSortKey,
		Desc:    true,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	l.table.Store(table)

	l.statsMu.Lock()
	l.stats.Evaluations++
	l.stats.LastEvalTime = elapsed
	l.stats.LastItemCount = table.Total
	l.stats.LastMatchCount = table.Matched
	l.statsMu.Unlock()

	if elapsed > l.config.MaxEvalTime {
		logger.Warn("Evaluation exceeded max time",
			logger.Duration("eval_time", elapsed),
			logger.Duration("max_time", l.config.MaxEvalTime),
		)
	}
	logger.Info("Evaluated snapshot",
		logger.Int("items", table.Total),
		logger.Int("matched", table.Matched),
		logger.Int("filters", table.Filters),
		logger.Int("columns", len(table.Columns)),
		logger.Duration("eval_time", elapsed),
	)
	return nil
}
