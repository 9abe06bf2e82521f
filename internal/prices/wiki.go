package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedkhairy/flip-finder/internal/config"
	"github.com/mohamedkhairy/flip-finder/internal/models"
	"github.com/mohamedkhairy/flip-finder/pkg/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	endpointLatest     = "latest"
	endpointMapping    = "mapping"
	endpoint5m         = "5m"
	endpoint1h         = "1h"
	endpointVolumes    = "volumes"
	endpointTimeseries = "timeseries"
)

// WikiClient talks to prices.runescape.wiki. The API asks every client for
// a descriptive User-Agent; requests share one rate limiter.
type WikiClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewWikiClient creates a client from configuration
func NewWikiClient(cfg config.PricesConfig) *WikiClient {
	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &WikiClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Name implements Provider
func (c *WikiClient) Name() string {
	return "osrs-wiki"
}

type latestPrice struct {
	High *float64 `json:"high"`
	Low  *float64 `json:"low"`
}

type mappingEntry struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Members  bool     `json:"members"`
	Limit    int      `json:"limit"`
	HighAlch *float64 `json:"highalch"`
}

type averagePrice struct {
	AvgHighPrice    *float64 `json:"avgHighPrice"`
	HighPriceVolume float64  `json:"highPriceVolume"`
	AvgLowPrice     *float64 `json:"avgLowPrice"`
	LowPriceVolume  float64  `json:"lowPriceVolume"`
}

type timeseriesPoint struct {
	Timestamp    int64    `json:"timestamp"`
	AvgHighPrice *float64 `json:"avgHighPrice"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// FetchItems fetches the five snapshot endpoints concurrently and joins them
// on item ID. Items without a high price, low price or daily volume are
// skipped.
func (c *WikiClient) FetchItems(ctx context.Context) ([]models.Item, error) {
	var (
		latest  envelope[map[string]latestPrice]
		mapping []mappingEntry
		fiveMin envelope[map[string]averagePrice]
		oneHour envelope[map[string]averagePrice]
		volumes envelope[map[string]float64]
	)
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.getJSON(gctx, endpointLatest, nil, &latest) })
	g.Go(func() error { return c.getJSON(gctx, endpointMapping, nil, &mapping) })
	g.Go(func() error { return c.getJSON(gctx, endpoint5m, nil, &fiveMin) })
	g.Go(func() error { return c.getJSON(gctx, endpoint1h, nil, &oneHour) })
	g.Go(func() error { return c.getJSON(gctx, endpointVolumes, nil, &volumes) })

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := joinItems(mapping, latest.Data, fiveMin.Data, oneHour.Data, volumes.Data)

	logger.Info("Fetched item prices",
		logger.Int("mapped", len(mapping)),
		logger.Int("items", len(items)),
		logger.Duration("duration", time.Since(start)),
	)
	return items, nil
}

func joinItems(
	mapping []mappingEntry,
	latest map[string]latestPrice,
	fiveMin, oneHour map[string]averagePrice,
	volumes map[string]float64,
) []models.Item {
	items := make([]models.Item, 0, len(mapping))
	for _, m := range mapping {
		key := strconv.Itoa(m.ID)

		price, ok := latest[key]
		if !ok || positive(price.High) == nil || positive(price.Low) == nil {
			continue
		}
		volume := volumes[key]
		if volume <= 0 {
			continue
		}

		item := models.Item{
			ID:       m.ID,
			Name:     m.Name,
			Members:  m.Members,
			Limit:    m.Limit,
			Low:      *price.Low,
			High:     *price.High,
			Volume:   volume,
			HighAlch: positive(m.HighAlch),
		}
		if avg, ok := fiveMin[key]; ok {
			item.Avg5m = positive(avg.AvgHighPrice)
			item.HighVol5m = avg.HighPriceVolume
			item.LowVol5m = avg.LowPriceVolume
		}
		if avg, ok := oneHour[key]; ok {
			item.Avg1h = positive(avg.AvgHighPrice)
			item.HighVol1h = avg.HighPriceVolume
			item.LowVol1h = avg.LowPriceVolume
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// positive maps missing and zero prices to nil
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// FetchTimeseries returns the average high price history of one item,
// newest first. Buckets without trades are skipped.
func (c *WikiClient) FetchTimeseries(ctx context.Context, id int, timestep string) ([]float64, error) {
	if !ValidTimestep(timestep) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimestep, timestep)
	}

	var resp envelope[[]timeseriesPoint]
	query := url.Values{}
	query.Set("id", strconv.Itoa(id))
	query.Set("timestep", timestep)
	if err := c.getJSON(ctx, endpointTimeseries, query, &resp); err != nil {
		return nil, err
	}

	points := resp.Data
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp > points[j].Timestamp })

	series := make([]float64, 0, len(points))
	for _, p := range points {
		if v := positive(p.AvgHighPrice); v != nil {
			series = append(series, *v)
		}
	}
	return series, nil
}

func (c *WikiClient) getJSON(ctx context.Context, endpoint string, query url.Values, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", endpoint, err)
	}

	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.PriceFetchErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.PriceFetchErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: %w: %d", endpoint, ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		logger.PriceFetchErrors.WithLabelValues(endpoint).Inc()
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}
