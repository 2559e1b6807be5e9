// Package interfaces defines service contracts for Shisan
package interfaces

import (
	"context"
	"time"

	"github.com/hirokada/shisan/internal/models"
)

// PriceSource is one tier in the price resolution chain. Implementations
// wrap a single external data provider and normalize output to a daily
// PriceSeries.
//
// A nil series with a nil error means "no data available". An empty series
// is different: the provider answered but had zero rows in range. Errors are transient provider failures and count against the
// caller's circuit breaker.
type PriceSource interface {
	// Name returns the source tag recorded in the cache ("scraped", "nav", ...).
	Name() string

	// Fetch retrieves daily prices for the provider ticker in [from, to]
	// inclusive. The NAV source accepts a fund name in place of a ticker.
	Fetch(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error)
}
