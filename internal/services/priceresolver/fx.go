package priceresolver

import (
	"context"
	"fmt"
	"time"

	"github.com/hirokada/shisan/internal/models"
	"github.com/hirokada/shisan/internal/services/alias"
)

// FXSymbol keys the cached USD/JPY rate series.
const FXSymbol = "USDJPY"

// fxCandidates are (tier, ticker) pairs tried in order for the USD/JPY
// series. Each provider spells the pair differently.
var fxCandidates = []struct {
	tier   string
	ticker string
}{
	{models.SourceYahoo, "USDJPY=X"},
	{models.SourceAlt, "USD/JPY"},
	{models.SourceAlt, "USDJPY"},
}

// GetExchangeRateHistory returns the USD/JPY daily rate series for
// [from, to], cache first. Returns nil when no provider has data.
func (s *Service) GetExchangeRateHistory(ctx context.Context, from, to time.Time) (models.PriceSeries, error) {
	fromDay, toDay := models.Day(from), models.Day(to)
	if fromDay.After(toDay) {
		return nil, fmt.Errorf("invalid window: from %s is after to %s", fromDay.Format("2006-01-02"), toDay.Format("2006-01-02"))
	}

	for _, cand := range fxCandidates {
		series, fresh, err := s.cache.Lookup(ctx, FXSymbol, cand.ticker, cand.tier, fromDay, toDay)
		if err != nil {
			continue
		}
		if fresh && series.Covers(fromDay, toDay) {
			return series, nil
		}
	}

	for _, cand := range fxCandidates {
		src, ok := s.sources[cand.tier]
		if !ok || !s.breaker.Allow(FXSymbol, cand.tier) {
			continue
		}
		series, err := s.cache.FetchAndCache(ctx, src, cand.ticker, FXSymbol, cand.ticker, "JPY", fromDay, toDay)
		if err != nil {
			s.breaker.Failure(FXSymbol, cand.tier)
			s.logger.Warn().Err(err).Str("ticker", cand.ticker).Msg("FX fetch failed, trying next candidate")
			continue
		}
		s.breaker.Success(FXSymbol, cand.tier)
		if len(series) > 0 {
			return series, nil
		}
	}

	return nil, nil
}

// ToHomeCurrency converts a foreign-currency series using forward-filled
// rates: each price uses the most recent rate on or before its date. Prices
// dated before the first known rate stay missing rather than borrowing a
// future rate.
func ToHomeCurrency(prices, rates models.PriceSeries) models.PriceSeries {
	if len(prices) == 0 || len(rates) == 0 {
		return nil
	}
	prices = prices.Sorted()
	rates = rates.Sorted()

	var out models.PriceSeries
	ri := 0
	haveRate := false
	var rate float64
	for _, p := range prices {
		for ri < len(rates) && !rates[ri].Date.After(p.Date) {
			rate = rates[ri].Price
			haveRate = true
			ri++
		}
		if !haveRate {
			continue
		}
		out = append(out, models.PricePoint{Date: p.Date, Price: p.Price * rate})
	}
	return out
}

// GetPriceHistoryHomeCurrency resolves price history and, when the holding
// trades in a foreign currency, composes it with the USD/JPY series into
// home-currency values. The source tag reflects the price series, not the
// rates.
func (s *Service) GetPriceHistoryHomeCurrency(ctx context.Context, symbol, name string, from, to time.Time, portfolioID string) (models.PriceSeries, string, error) {
	series, source, err := s.GetPriceHistory(ctx, symbol, name, from, to, portfolioID)
	if err != nil || len(series) == 0 {
		return series, source, err
	}

	canonical, _ := alias.Resolve(symbol, name)
	holding, err := s.holdings.GetHolding(ctx, portfolioID, canonical)
	if err != nil || holding == nil || !holding.IsForeign(s.homeCurrency) {
		return series, source, nil
	}

	rates, err := s.GetExchangeRateHistory(ctx, series.FirstDate(), series.LastDate())
	if err != nil || len(rates) == 0 {
		s.logger.Warn().Str("symbol", canonical).Msg("No FX rates available, returning native currency")
		return series, source, nil
	}

	converted := ToHomeCurrency(series, rates)
	if len(converted) == 0 {
		return series, source, nil
	}
	return converted, source, nil
}
