package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/internal/prices"
)

type staticColumns struct {
	cols []models.ColumnDefinition
	err  error
}

func (s *staticColumns) Load(context.Context) ([]models.ColumnDefinition, error) {
	return s.cols, s.err
}

type staticFilters struct {
	mu      sync.Mutex
	filters []models.SavedFilter
}

func (s *staticFilters) Load(context.Context) ([]models.SavedFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters, nil
}

func (s *staticFilters) set(filters []models.SavedFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filters
}

func newTestLoop(provider prices.Provider, filters *staticFilters) *RefreshLoop {
	if filters == nil {
		filters = &staticFilters{}
	}
	return NewRefreshLoop(
		RefreshLoopConfig{Interval: time.Hour},
		provider,
		newTestEngine(nil),
		&staticColumns{cols: testColumns()},
		filters,
	)
}

func TestRefreshLoop_RefreshAndEvaluate(t *testing.T) {
	loop := newTestLoop(prices.NewMockProvider(testItems()), nil)
	ctx := context.Background()

	assert.False(t, loop.Snapshot().Ready())
	require.NoError(t, loop.Evaluate(ctx))
	assert.Nil(t, loop.Table(), "nothing to evaluate before the first fetch")

	require.NoError(t, loop.Refresh(ctx))
	snap := loop.Snapshot()
	assert.True(t, snap.Ready())
	assert.Equal(t, "mock", snap.Source)
	assert.Len(t, snap.Items, 4)

	require.NoError(t, loop.Evaluate(ctx))
	table := loop.Table()
	require.NotNil(t, table)
	assert.Equal(t, DefaultSortKey, table.SortBy)
	assert.True(t, table.Desc)
	assert.Equal(t, []int{1, 3, 2, 4}, rowIDs(table))

	stats := loop.GetStats()
	assert.EqualValues(t, 1, stats.Refreshes)
	assert.EqualValues(t, 1, stats.Evaluations)
	assert.Equal(t, 4, stats.LastItemCount)
	assert.Equal(t, 4, stats.LastMatchCount)
}

func TestRefreshLoop_FetchErrorKeepsSnapshot(t *testing.T) {
	provider := prices.NewMockProvider(testItems())
	loop := newTestLoop(provider, nil)
	ctx := context.Background()

	require.NoError(t, loop.Refresh(ctx))
	before := loop.Snapshot()

	provider.Err = errors.New("wiki down")
	err := loop.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wiki down")

	assert.Equal(t, before.FetchedAt, loop.Snapshot().FetchedAt)
	assert.EqualValues(t, 1, loop.GetStats().FetchErrors)
}

func TestRefreshLoop_DefinitionLoadError(t *testing.T) {
	loop := NewRefreshLoop(
		RefreshLoopConfig{},
		prices.NewMockProvider(testItems()),
		newTestEngine(nil),
		&staticColumns{err: errors.New("store closed")},
		&staticFilters{},
	)
	ctx := context.Background()
	require.NoError(t, loop.Refresh(ctx))

	err := loop.Evaluate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load columns")
	assert.Nil(t, loop.Table())
}

func TestRefreshLoop_StartStopAndTrigger(t *testing.T) {
	filters := &staticFilters{}
	loop := newTestLoop(prices.NewMockProvider(testItems()), filters)

	require.NoError(t, loop.Start())
	defer loop.Stop()
	assert.True(t, loop.IsRunning())
	assert.Error(t, loop.Start(), "second start is rejected")

	require.Eventually(t, func() bool {
		table := loop.Table()
		return table != nil && table.Matched == 4
	}, 2*time.Second, 10*time.Millisecond)

	filters.set([]models.SavedFilter{{ID: "f2p", Name: "F2P", Enabled: true, Rule: rule("==", "item.members", false)}})
	loop.Trigger()
	loop.Trigger()

	require.Eventually(t, func() bool {
		return loop.Table().Matched == 2
	}, 2*time.Second, 10*time.Millisecond)

	loop.Stop()
	assert.False(t, loop.IsRunning())
	loop.Stop()
}

func TestNewRefreshLoop_Defaults(t *testing.T) {
	loop := newTestLoop(prices.NewMockProvider(nil), nil)
	assert.Equal(t, time.Hour, loop.config.Interval)
	assert.Equal(t, DefaultRefreshLoopConfig().FetchTimeout, loop.config.FetchTimeout)

	assert.Panics(t, func() {
		NewRefreshLoop(RefreshLoopConfig{}, nil, newTestEngine(nil), &staticColumns{}, &staticFilters{})
	})
}
