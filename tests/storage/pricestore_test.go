package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/models"
	"github.com/hirokada/shisan/internal/storage/surrealdb"
	testcommon "github.com/hirokada/shisan/tests/common"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

// newManager connects a storage manager to the shared test container with a
// per-test database.
func newManager(t *testing.T) *surrealdb.Manager {
	t.Helper()
	db := testcommon.StartSurrealDB(t)

	cfg := common.NewDefaultConfig()
	cfg.Storage.Address = db.Address()
	cfg.Storage.Username = "root"
	cfg.Storage.Password = "root"
	cfg.Storage.Namespace = "shisan_test"
	cfg.Storage.Database = testcommon.DatabaseName(t)

	m, err := surrealdb.NewManager(common.NewSilentLogger(), cfg)
	require.NoError(t, err, "storage manager should connect to the test container")
	t.Cleanup(func() { m.Close() })
	return m
}

func threeDays(price float64) models.PriceSeries {
	return models.PriceSeries{
		{Date: day("2025-01-06"), Price: price},
		{Date: day("2025-01-07"), Price: price + 1},
		{Date: day("2025-01-08"), Price: price + 2},
	}
}

func TestPriceStore_UpsertIdempotent(t *testing.T) {
	store := newManager(t).PriceStorage()
	ctx := context.Background()
	from, to := day("2025-01-01"), day("2025-01-31")

	require.NoError(t, store.UpsertBatch(ctx, "1326", "1326.T", models.SourceYahoo, "JPY", threeDays(100)))

	first, err := store.GetRange(ctx, "1326", "1326.T", models.SourceYahoo, from, to)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, first[0].LastVerifiedAt)
	assert.False(t, first[0].CreatedAt.IsZero(), "created_at should be stamped on insert")

	// Re-writing the same (symbol, ticker, date, source) rows must update in
	// place: same row count, newer verification, original creation time.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, store.UpsertBatch(ctx, "1326", "1326.T", models.SourceYahoo, "JPY", threeDays(105)))

	second, err := store.GetRange(ctx, "1326", "1326.T", models.SourceYahoo, from, to)
	require.NoError(t, err)
	require.Len(t, second, 3, "duplicate keys must not create duplicate rows")

	for i := range second {
		assert.InDelta(t, 105.0+float64(i), second[i].Price, 1e-9, "re-upsert should carry the new price")
		require.NotNil(t, second[i].LastVerifiedAt)
		assert.True(t, second[i].LastVerifiedAt.After(*first[i].LastVerifiedAt),
			"last_verified_at should advance on re-verification")
		assert.True(t, second[i].CreatedAt.Equal(first[i].CreatedAt),
			"created_at must survive re-upserts")
	}
}

func TestPriceStore_RangeAndOrdering(t *testing.T) {
	store := newManager(t).PriceStorage()
	ctx := context.Background()

	// Written out of order; reads come back date ascending
	series := models.PriceSeries{
		{Date: day("2025-01-08"), Price: 3},
		{Date: day("2025-01-06"), Price: 1},
		{Date: day("2025-01-07"), Price: 2},
	}
	require.NoError(t, store.UpsertBatch(ctx, "1326", "1326.T", models.SourceScraped, "JPY", series))

	records, err := store.GetRange(ctx, "1326", "1326.T", models.SourceScraped, day("2025-01-06"), day("2025-01-07"))
	require.NoError(t, err)
	require.Len(t, records, 2, "range endpoints are inclusive")
	assert.True(t, records[0].Date.Before(records[1].Date))
	assert.InDelta(t, 1.0, records[0].Price, 1e-9)

	latest, err := store.LatestDate(ctx, "1326", "1326.T", models.SourceScraped)
	require.NoError(t, err)
	assert.True(t, latest.Equal(day("2025-01-08")))
}

func TestPriceStore_SourcesAreIsolated(t *testing.T) {
	store := newManager(t).PriceStorage()
	ctx := context.Background()
	from, to := day("2025-01-01"), day("2025-01-31")

	require.NoError(t, store.UpsertBatch(ctx, "1326", "1326.T", models.SourceYahoo, "JPY", threeDays(100)))
	require.NoError(t, store.UpsertBatch(ctx, "1326", "1326.T", models.SourceScraped, "JPY", threeDays(200)))

	yahoo, err := store.GetRange(ctx, "1326", "1326.T", models.SourceYahoo, from, to)
	require.NoError(t, err)
	require.Len(t, yahoo, 3)
	assert.InDelta(t, 100.0, yahoo[0].Price, 1e-9, "each source keeps its own rows")
}

func TestPriceStore_ClearBySymbol(t *testing.T) {
	store := newManager(t).PriceStorage()
	ctx := context.Background()
	from, to := day("2025-01-01"), day("2025-01-31")

	require.NoError(t, store.UpsertBatch(ctx, "1326", "1326.T", models.SourceYahoo, "JPY", threeDays(100)))
	require.NoError(t, store.UpsertBatch(ctx, "1693", "1693.T", models.SourceYahoo, "JPY", threeDays(50)))

	count, err := store.Clear(ctx, "1326", "")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	gone, err := store.GetRange(ctx, "1326", "1326.T", models.SourceYahoo, from, to)
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := store.GetRange(ctx, "1693", "1693.T", models.SourceYahoo, from, to)
	require.NoError(t, err)
	assert.Len(t, kept, 3, "other symbols must survive a scoped clear")
}

func TestTransactionAndHoldingStores_RoundTrip(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	tx := &models.Transaction{
		PortfolioID: "p1",
		Symbol:      "1326",
		Date:        day("2025-01-06"),
		Quantity:    10,
		AmountJPY:   35000,
	}
	require.NoError(t, m.TransactionStorage().SaveTransaction(ctx, tx))
	require.NotEmpty(t, tx.ID, "save should assign a surrogate id")

	txs, err := m.TransactionStorage().ListTransactions(ctx, "p1", "1326")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Date.Equal(day("2025-01-06")))

	holding := &models.Holding{PortfolioID: "p1", Symbol: "PLTR", Currency: "USD"}
	require.NoError(t, m.HoldingStorage().SaveHolding(ctx, holding))

	got, err := m.HoldingStorage().GetHolding(ctx, "p1", "PLTR")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "USD", got.Currency)

	missing, err := m.HoldingStorage().GetHolding(ctx, "p1", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing, "absent holdings read back as nil, not an error")
}
