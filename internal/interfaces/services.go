package interfaces

import (
	"context"
	"time"

	"github.com/hirokada/shisan/internal/models"
)

// PriceService resolves historical price series through the tiered source
// chain with caching.
type PriceService interface {
	// GetPriceHistory returns a daily price series for a security and the
	// source tag that produced it. The tag is always present: one of the
	// adapter tags, "interpolated", or "none" when every tier came up empty.
	// Provider failures never surface here; the only returned error is
	// caller-input validation (from after to).
	GetPriceHistory(ctx context.Context, symbol, name string, from, to time.Time, portfolioID string) (models.PriceSeries, string, error)

	// GetExchangeRateHistory returns the USD/JPY rate series for the window,
	// or nil when no provider has data.
	GetExchangeRateHistory(ctx context.Context, from, to time.Time) (models.PriceSeries, error)
}
