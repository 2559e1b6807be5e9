package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

// PriceStore persists cached price rows in the price_history table. Record
// ids are deterministic over (symbol, ticker, date, source) so re-fetching
// the same day updates in place instead of duplicating.
type PriceStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	now    func() time.Time
}

func NewPriceStore(db *surrealdb.DB, logger *common.Logger) *PriceStore {
	return &PriceStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func priceRecordKey(symbol, ticker string, date time.Time, source string) string {
	return strings.Join([]string{symbol, ticker, models.Day(date).Format("20060102"), source}, "|")
}

func (s *PriceStore) GetRange(ctx context.Context, symbol, ticker, source string, from, to time.Time) ([]*models.PriceRecord, error) {
	sql := `SELECT * OMIT id FROM price_history
		WHERE symbol = $symbol AND ticker = $ticker AND source = $source
		AND date >= $from AND date <= $to
		ORDER BY date ASC`
	vars := map[string]any{
		"symbol": symbol,
		"ticker": ticker,
		"source": source,
		"from":   models.Day(from),
		"to":     models.Day(to),
	}

	results, err := surrealdb.Query[[]models.PriceRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query price range: %w", err)
	}

	var records []*models.PriceRecord
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			records = append(records, &(*results)[0].Result[i])
		}
	}
	return records, nil
}

func (s *PriceStore) UpsertBatch(ctx context.Context, symbol, ticker, source, currency string, series models.PriceSeries) error {
	if len(series) == 0 {
		return nil
	}

	now := s.now().UTC()
	rows := make([]map[string]any, 0, len(series))
	for _, p := range series {
		content := map[string]any{
			"symbol":           symbol,
			"ticker":           ticker,
			"date":             models.Day(p.Date),
			"price":            p.Price,
			"source":           source,
			"currency":         currency,
			"updated_at":       now,
			"last_verified_at": now,
		}
		if p.NAV != nil {
			content["nav"] = *p.NAV
		}
		if p.Diff != nil {
			content["diff"] = *p.Diff
		}
		if p.AUMMillion != nil {
			content["aum_million"] = *p.AUMMillion
		}
		rows = append(rows, map[string]any{
			"key":     priceRecordKey(symbol, ticker, p.Date, source),
			"content": content,
			"now":     now,
		})
	}

	// One transaction per batch: either every row lands or none do
	sql := `BEGIN TRANSACTION;
		FOR $row IN $rows {
			UPSERT type::thing('price_history', $row.key) MERGE $row.content;
			UPDATE type::thing('price_history', $row.key) SET created_at ??= $row.now;
		};
		COMMIT TRANSACTION;`
	vars := map[string]any{"rows": rows}

	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to upsert price batch: %w", err)
	}

	s.logger.Debug().
		Str("symbol", symbol).
		Str("source", source).
		Int("rows", len(rows)).
		Msg("Price batch upserted")

	return nil
}

func (s *PriceStore) LatestDate(ctx context.Context, symbol, ticker, source string) (time.Time, error) {
	sql := `SELECT date FROM price_history
		WHERE symbol = $symbol AND ticker = $ticker AND source = $source
		ORDER BY date DESC LIMIT 1`
	vars := map[string]any{
		"symbol": symbol,
		"ticker": ticker,
		"source": source,
	}

	type dateResult struct {
		Date time.Time `json:"date"`
	}

	results, err := surrealdb.Query[[]dateResult](ctx, s.db, sql, vars)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest date: %w", err)
	}

	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return models.Day((*results)[0].Result[0].Date), nil
	}
	return time.Time{}, nil
}

func (s *PriceStore) Clear(ctx context.Context, symbol, ticker string) (int, error) {
	conds := []string{}
	vars := map[string]any{}
	if symbol != "" {
		conds = append(conds, "symbol = $symbol")
		vars["symbol"] = symbol
	}
	if ticker != "" {
		conds = append(conds, "ticker = $ticker")
		vars["ticker"] = ticker
	}

	sql := "DELETE price_history RETURN BEFORE"
	if len(conds) > 0 {
		sql = "DELETE price_history WHERE " + strings.Join(conds, " AND ") + " RETURN BEFORE"
	}

	results, err := surrealdb.Query[[]models.PriceRecord](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to clear price cache: %w", err)
	}

	count := 0
	if results != nil && len(*results) > 0 {
		count = len((*results)[0].Result)
	}
	s.logger.Info().Str("symbol", symbol).Str("ticker", ticker).Int("count", count).Msg("Price cache cleared")
	return count, nil
}

// Compile-time check
var _ interfaces.PriceStore = (*PriceStore)(nil)
