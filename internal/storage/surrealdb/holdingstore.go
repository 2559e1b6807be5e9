package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

// HoldingStore persists current positions keyed by (portfolio, symbol).
type HoldingStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewHoldingStore(db *surrealdb.DB, logger *common.Logger) *HoldingStore {
	return &HoldingStore{
		db:     db,
		logger: logger,
	}
}

func holdingKey(portfolioID, symbol string) string {
	return portfolioID + "|" + symbol
}

func (s *HoldingStore) GetHolding(ctx context.Context, portfolioID, symbol string) (*models.Holding, error) {
	sql := `SELECT * OMIT id FROM holdings
		WHERE portfolio_id = $portfolio_id AND symbol = $symbol LIMIT 1`
	vars := map[string]any{
		"portfolio_id": portfolioID,
		"symbol":       symbol,
	}

	results, err := surrealdb.Query[[]models.Holding](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding: %w", err)
	}

	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return &(*results)[0].Result[0], nil
	}
	return nil, nil
}

func (s *HoldingStore) SaveHolding(ctx context.Context, holding *models.Holding) error {
	holding.UpdatedAt = time.Now().UTC()

	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID("holdings", holdingKey(holding.PortfolioID, holding.Symbol)),
		"data": map[string]any{
			"portfolio_id": holding.PortfolioID,
			"symbol":       holding.Symbol,
			"name":         holding.Name,
			"quantity":     holding.Quantity,
			"market":       holding.Market,
			"currency":     holding.Currency,
			"updated_at":   holding.UpdatedAt,
		},
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.HoldingStore = (*HoldingStore)(nil)
