// Package prices supplies item snapshots and per-item price history from the
// OSRS wiki real-time prices API.
package prices

import (
	"context"
	"errors"

	"github.com/mohamedkhairy/flip-finder/internal/models"
)

var (
	// ErrUnexpectedStatus is returned when the API answers with a non-2xx status
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrInvalidTimestep is returned for a timeseries step the API does not offer
	ErrInvalidTimestep = errors.New("invalid timestep")
)

// Timesteps accepted by FetchTimeseries
const (
	Timestep5m  = "5m"
	Timestep1h  = "1h"
	Timestep6h  = "6h"
	Timestep24h = "24h"
)

// Provider supplies market data
type Provider interface {
	// FetchItems returns one snapshot of every tradeable item with a
	// complete price and volume
	FetchItems(ctx context.Context) ([]models.Item, error)

	// FetchTimeseries returns average high prices for one item, newest first
	FetchTimeseries(ctx context.Context, id int, timestep string) ([]float64, error)

	// Name identifies the provider in logs
	Name() string
}

// ValidTimestep reports whether step is a timestep the API serves
func ValidTimestep(step string) bool {
	switch step {
	case Timestep5m, Timestep1h, Timestep6h, Timestep24h:
		return true
	}
	return false
}
