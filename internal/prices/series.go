package prices

import (
	"context"
	"sync"
	"time"

	"github.com/mohamedkhairy/flip-finder/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type seriesEntry struct {
	values    []float64
	fetchedAt time.Time
}

// SeriesCache fetches price histories on demand and keeps them for ttl.
// Histories are only needed for the rows actually displayed, so they are
// requested in small batches rather than for every item.
type SeriesCache struct {
	provider    Provider
	timestep    string
	ttl         time.Duration
	concurrency int
	now         func() time.Time

	mu      sync.RWMutex
	entries map[int]seriesEntry
}

// NewSeriesCache creates a cache over provider
func NewSeriesCache(provider Provider, timestep string, ttl time.Duration) *SeriesCache {
	return &SeriesCache{
		provider:    provider,
		timestep:    timestep,
		ttl:         ttl,
		concurrency: 4,
		now:         time.Now,
		entries:     make(map[int]seriesEntry),
	}
}

// Series returns the history of each requested item. Missing or stale
// entries are fetched concurrently; items whose fetch fails are absent from
// the result.
func (s *SeriesCache) Series(ctx context.Context, ids []int) map[int][]float64 {
	out := make(map[int][]float64, len(ids))
	var missing []int

	s.mu.RLock()
	now := s.now()
	for _, id := range ids {
		if e, ok := s.entries[id]; ok && now.Sub(e.fetchedAt) < s.ttl {
			out[id] = e.values
			continue
		}
		missing = append(missing, id)
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return out
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range missing {
		g.Go(func() error {
			values, err := s.provider.FetchTimeseries(gctx, id, s.timestep)
			if err != nil {
				logger.Warn("Failed to fetch price history",
					logger.Int("item_id", id),
					logger.ErrorField(err),
				)
				return nil
			}
			mu.Lock()
			out[id] = values
			mu.Unlock()

			s.mu.Lock()
			s.entries[id] = seriesEntry{values: values, fetchedAt: s.now()}
			s.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Len returns the number of cached histories, stale ones included
func (s *SeriesCache) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
