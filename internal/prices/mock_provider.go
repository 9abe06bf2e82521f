package prices

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/mohamedkhairy/flip-finder/internal/models"
)

// MockProvider serves fixed or generated data for tests and offline runs
type MockProvider struct {
	mu     sync.RWMutex
	items  []models.Item
	series map[int][]float64

	// Err, when set, is returned by every fetch
	Err error

	itemCalls   atomic.Int64
	seriesCalls atomic.Int64
}

// NewMockProvider creates a provider serving items. Series default to empty.
func NewMockProvider(items []models.Item) *MockProvider {
	return &MockProvider{
		items:  items,
		series: make(map[int][]float64),
	}
}

// NewRandomMockProvider generates n plausible items from seed, with a short
// price history for each
func NewRandomMockProvider(n int, seed int64) *MockProvider {
	rng := rand.New(rand.NewSource(seed))
	m := NewMockProvider(GenerateItems(n, rng))
	for _, item := range m.items {
		history := make([]float64, 24)
		price := item.High
		for i := range history {
			history[i] = math.Round(price)
			price *= 1 + (rng.Float64()-0.5)*0.04
		}
		m.series[item.ID] = history
	}
	return m
}

// GenerateItems builds n items with spreads, volumes and optional averages
func GenerateItems(n int, rng *rand.Rand) []models.Item {
	items := make([]models.Item, 0, n)
	for i := 0; i < n; i++ {
		low := math.Round(math.Pow(10, 1+rng.Float64()*6))
		high := math.Round(low * (0.97 + rng.Float64()*0.1))
		item := models.Item{
			ID:        i + 1,
			Name:      fmt.Sprintf("Item %d", i+1),
			Members:   rng.Intn(3) > 0,
			Limit:     []int{8, 70, 100, 1000, 10000, 25000}[rng.Intn(6)],
			Low:       low,
			High:      high,
			Volume:    math.Round(rng.Float64() * 500000),
			HighVol5m: float64(rng.Intn(200)),
			LowVol5m:  float64(rng.Intn(200)),
			HighVol1h: float64(rng.Intn(2000)),
			LowVol1h:  float64(rng.Intn(2000)),
		}
		if rng.Intn(4) > 0 {
			item.Avg5m = models.Float64Ptr(math.Round(high * (0.98 + rng.Float64()*0.04)))
			item.Avg1h = models.Float64Ptr(math.Round(high * (0.97 + rng.Float64()*0.06)))
		}
		if rng.Intn(2) == 0 {
			item.HighAlch = models.Float64Ptr(math.Round(low * (0.5 + rng.Float64())))
		}
		items = append(items, item)
	}
	return items
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return "mock"
}

// FetchItems returns a copy of the configured items
func (m *MockProvider) FetchItems(ctx context.Context) ([]models.Item, error) {
	m.itemCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Item(nil), m.items...), nil
}

// FetchTimeseries returns the configured history for id
func (m *MockProvider) FetchTimeseries(ctx context.Context, id int, timestep string) ([]float64, error) {
	m.seriesCalls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	if !ValidTimestep(timestep) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimestep, timestep)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.series[id]...), nil
}

// SetItems replaces the served items
func (m *MockProvider) SetItems(items []models.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

// SetSeries sets the history served for id, newest first
func (m *MockProvider) SetSeries(id int, values []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[id] = values
}

// ItemCalls returns how many times FetchItems was called
func (m *MockProvider) ItemCalls() int64 {
	return m.itemCalls.Load()
}

// SeriesCalls returns how many times FetchTimeseries was called
func (m *MockProvider) SeriesCalls() int64 {
	return m.seriesCalls.Load()
}
