package server

import (
	"net/http"
	"time"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/models"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Prices
	mux.HandleFunc("/api/prices/history", s.handlePriceHistory)
	mux.HandleFunc("/api/prices/cache", s.handleCacheClear)
	mux.HandleFunc("/api/fx/history", s.handleFXHistory)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": common.GetVersion(),
		"uptime":  time.Since(s.app.StartupTime).String(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetFullVersion(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// priceHistoryResponse is the payload for GET /api/prices/history.
type priceHistoryResponse struct {
	Symbol string             `json:"symbol"`
	Source string             `json:"source"`
	From   string             `json:"from"`
	To     string             `json:"to"`
	Prices models.PriceSeries `json:"prices"`
}

// handlePriceHistory handles GET /api/prices/history.
//
// Query parameters: symbol (required), name, from, to (yyyy-mm-dd, default
// one year back to today), portfolio, convert=home to compose foreign
// prices into the home currency, refresh=true to bypass cached data and
// re-fetch from the providers.
func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "symbol parameter is required")
		return
	}
	name := r.URL.Query().Get("name")
	portfolioID := r.URL.Query().Get("portfolio")

	now := time.Now()
	from, ok := parseDateParam(r, "from", now.AddDate(-1, 0, 0))
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid from date, expected yyyy-mm-dd")
		return
	}
	to, ok := parseDateParam(r, "to", now)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid to date, expected yyyy-mm-dd")
		return
	}

	var (
		series models.PriceSeries
		source string
		err    error
	)
	switch {
	case r.URL.Query().Get("convert") == "home":
		series, source, err = s.app.Resolver.GetPriceHistoryHomeCurrency(r.Context(), symbol, name, from, to, portfolioID)
	case r.URL.Query().Get("refresh") == "true":
		series, source, err = s.app.Resolver.RefreshPriceHistory(r.Context(), symbol, name, from, to, portfolioID)
	default:
		series, source, err = s.app.PriceService.GetPriceHistory(r.Context(), symbol, name, from, to, portfolioID)
	}
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, priceHistoryResponse{
		Symbol: symbol,
		Source: source,
		From:   models.Day(from).Format("2006-01-02"),
		To:     models.Day(to).Format("2006-01-02"),
		Prices: series,
	})
}

// handleFXHistory handles GET /api/fx/history (USD/JPY daily rates).
func (s *Server) handleFXHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	now := time.Now()
	from, ok := parseDateParam(r, "from", now.AddDate(-1, 0, 0))
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid from date, expected yyyy-mm-dd")
		return
	}
	to, ok := parseDateParam(r, "to", now)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid to date, expected yyyy-mm-dd")
		return
	}

	series, err := s.app.PriceService.GetExchangeRateHistory(r.Context(), from, to)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"pair":  "USD/JPY",
		"from":  models.Day(from).Format("2006-01-02"),
		"to":    models.Day(to).Format("2006-01-02"),
		"rates": series,
	})
}

// handleCacheClear handles DELETE /api/prices/cache?symbol=...&ticker=...
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	ticker := r.URL.Query().Get("ticker")
	if symbol == "" && ticker == "" {
		WriteError(w, http.StatusBadRequest, "symbol or ticker parameter is required")
		return
	}

	count, err := s.app.Cache.Clear(r.Context(), symbol, ticker)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to clear cache: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"cleared": count,
	})
}
