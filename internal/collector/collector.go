// Package collector fetches option-chain snapshots from market data
// sources and normalizes them into the internal model.
package collector

import (
	"context"
	"time"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// Collector fetches a normalized option-chain snapshot for one index
// symbol. Implementations must return rows sorted by strike with IVs
// as decimals (0.18, not 18).
type Collector interface {
	// FetchChain fetches the chain for the nearest expiry on or after
	// the given date. A zero expiry means the nearest available one.
	FetchChain(ctx context.Context, symbol string, expiry time.Time) (*models.OptionChainSnapshot, error)

	// Expiries lists the available expiry dates for the symbol,
	// soonest first.
	Expiries(ctx context.Context, symbol string) ([]time.Time, error)
}
