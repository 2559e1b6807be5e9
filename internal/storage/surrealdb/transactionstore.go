package surrealdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

// TransactionStore persists imported brokerage transactions.
type TransactionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewTransactionStore(db *surrealdb.DB, logger *common.Logger) *TransactionStore {
	return &TransactionStore{
		db:     db,
		logger: logger,
	}
}

func (s *TransactionStore) ListTransactions(ctx context.Context, portfolioID, symbol string) ([]*models.Transaction, error) {
	sql := `SELECT * OMIT id FROM transactions
		WHERE portfolio_id = $portfolio_id AND symbol = $symbol
		ORDER BY date ASC`
	vars := map[string]any{
		"portfolio_id": portfolioID,
		"symbol":       symbol,
	}

	results, err := surrealdb.Query[[]models.Transaction](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	var txs []*models.Transaction
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			txs = append(txs, &(*results)[0].Result[i])
		}
	}
	return txs, nil
}

func (s *TransactionStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	sql := "UPSERT $rid CONTENT $data"
	vars := map[string]any{
		"rid":  surrealmodels.NewRecordID("transactions", tx.ID),
		"data": transactionContent(tx),
	}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// transactionContent strips the id field; the record id carries it.
func transactionContent(tx *models.Transaction) map[string]any {
	return map[string]any{
		"portfolio_id": tx.PortfolioID,
		"date":         tx.Date,
		"symbol":       tx.Symbol,
		"name":         tx.Name,
		"side":         tx.Side,
		"quantity":     tx.Quantity,
		"amount_jpy":   tx.AmountJPY,
		"market":       tx.Market,
		"asset_class":  tx.AssetClass,
	}
}

// Compile-time check
var _ interfaces.TransactionStore = (*TransactionStore)(nil)
