// Package surrealdb implements the storage interfaces on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	priceStore       *PriceStore
	transactionStore *TransactionStore
	holdingStore     *HoldingStore
}

// NewManager creates a new StorageManager connected to SurrealDB.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables up front (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"price_history", "transactions", "holdings"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	// The cache key tuple must stay unique even though record ids already
	// encode it; the index backstops any future id scheme change.
	indexSQL := "DEFINE INDEX IF NOT EXISTS uniq_price_key ON price_history FIELDS symbol, ticker, date, source UNIQUE"
	if _, err := surrealdb.Query[any](ctx, db, indexSQL, nil); err != nil {
		return nil, fmt.Errorf("failed to define price index: %w", err)
	}

	m := &Manager{
		db:     db,
		logger: logger,
	}

	m.priceStore = NewPriceStore(db, logger)
	m.transactionStore = NewTransactionStore(db, logger)
	m.holdingStore = NewHoldingStore(db, logger)

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
}

func (m *Manager) PriceStorage() interfaces.PriceStore {
	return m.priceStore
}

func (m *Manager) TransactionStorage() interfaces.TransactionStore {
	return m.transactionStore
}

func (m *Manager) HoldingStorage() interfaces.HoldingStore {
	return m.holdingStore
}

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
