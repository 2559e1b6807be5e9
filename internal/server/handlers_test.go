package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hirokada/shisan/internal/app"
	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
	"github.com/hirokada/shisan/internal/services/pricecache"
	"github.com/hirokada/shisan/internal/services/priceresolver"
)

// stubStore satisfies the storage interfaces with empty data.
type stubStore struct{}

func (stubStore) GetRange(ctx context.Context, symbol, ticker, source string, from, to time.Time) ([]*models.PriceRecord, error) {
	return nil, nil
}

func (stubStore) UpsertBatch(ctx context.Context, symbol, ticker, source, currency string, series models.PriceSeries) error {
	return nil
}

func (stubStore) LatestDate(ctx context.Context, symbol, ticker, source string) (time.Time, error) {
	return time.Time{}, nil
}

func (stubStore) Clear(ctx context.Context, symbol, ticker string) (int, error) {
	return 0, nil
}

type stubTxStore struct{}

func (stubTxStore) ListTransactions(ctx context.Context, portfolioID, symbol string) ([]*models.Transaction, error) {
	return nil, nil
}

func (stubTxStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error { return nil }

type stubHoldingStore struct{}

func (stubHoldingStore) GetHolding(ctx context.Context, portfolioID, symbol string) (*models.Holding, error) {
	return nil, nil
}

func (stubHoldingStore) SaveHolding(ctx context.Context, holding *models.Holding) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cache := pricecache.NewService(stubStore{}, pricecache.WithChunkPause(0))
	resolver := priceresolver.NewService(cache, nil, stubTxStore{}, stubHoldingStore{})

	a := &app.App{
		Config:       common.NewDefaultConfig(),
		Logger:       common.NewSilentLogger(),
		Cache:        cache,
		Resolver:     resolver,
		PriceService: resolver,
		StartupTime:  time.Now(),
	}
	return NewServer(a)
}

var _ interfaces.PriceStore = stubStore{}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
}

func TestHandlePriceHistory_RequiresSymbol(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/prices/history", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePriceHistory_InvalidWindow(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/prices/history?symbol=1326&from=2025-02-01&to=2025-01-01", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandlePriceHistory_NoDataStillTagged(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/prices/history?symbol=1326&from=2025-01-01&to=2025-01-10", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body priceHistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Source != models.SourceNone {
		t.Errorf("source = %q, want none", body.Source)
	}
}

func TestHandlePriceHistory_MalformedDate(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/prices/history?symbol=1326&from=yesterday", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCacheClear_RequiresFilter(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/prices/cache", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMethodEnforcement(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/prices/history", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
