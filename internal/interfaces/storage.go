package interfaces

import (
	"context"
	"time"

	"github.com/hirokada/shisan/internal/models"
)

// PriceStore persists the (symbol, ticker, date, source) keyed price cache.
type PriceStore interface {
	// GetRange returns cached rows for one source within [from, to]
	// inclusive, ordered by date ascending. An empty result is not an error.
	GetRange(ctx context.Context, symbol, ticker, source string, from, to time.Time) ([]*models.PriceRecord, error)

	// UpsertBatch writes a series atomically. Existing rows for the same key
	// tuple get price, aux fields and last_verified_at refreshed; new rows
	// are inserted. A failure rolls the whole batch back.
	UpsertBatch(ctx context.Context, symbol, ticker, source, currency string, series models.PriceSeries) error

	// LatestDate returns the most recent cached date for the key, or the
	// zero time when nothing is cached.
	LatestDate(ctx context.Context, symbol, ticker, source string) (time.Time, error)

	// Clear deletes cached rows for a symbol and/or ticker (empty string
	// matches all). Returns the number of rows removed.
	Clear(ctx context.Context, symbol, ticker string) (int, error)
}

// TransactionStore provides access to imported transactions. The resolver
// uses them to clamp fetch windows and as interpolation input.
type TransactionStore interface {
	// ListTransactions returns transactions for a symbol ordered by date
	// ascending.
	ListTransactions(ctx context.Context, portfolioID, symbol string) ([]*models.Transaction, error)

	// SaveTransaction upserts a single transaction.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
}

// HoldingStore provides read access to current positions. The resolver only
// needs the trading currency/market tag for FX composition decisions.
type HoldingStore interface {
	GetHolding(ctx context.Context, portfolioID, symbol string) (*models.Holding, error)
	SaveHolding(ctx context.Context, holding *models.Holding) error
}

// StorageManager bundles the storage areas and owns the connection.
type StorageManager interface {
	PriceStorage() PriceStore
	TransactionStorage() TransactionStore
	HoldingStorage() HoldingStore
	Close() error
}
