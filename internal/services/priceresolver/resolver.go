// Package priceresolver coordinates historical price resolution: cache
// first, then the configured source tiers with circuit breaking, and
// transaction-based interpolation as the last resort.
package priceresolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
	"github.com/hirokada/shisan/internal/services/alias"
	"github.com/hirokada/shisan/internal/services/pricecache"
)

// DefaultResultTTL bounds how long an in-process resolution result (notably
// an interpolated series, which is never written to durable storage) is
// reused before being recomputed.
const DefaultResultTTL = time.Hour

// Service resolves price history through cache, tiered sources and
// interpolation. It implements interfaces.PriceService.
type Service struct {
	cache        *pricecache.Service
	sources      map[string]interfaces.PriceSource
	tierOrder    []string
	transactions interfaces.TransactionStore
	holdings     interfaces.HoldingStore
	breaker      *circuitBreaker
	inflight     *inflightGroup
	logger       *common.Logger
	homeCurrency string
	resultTTL    time.Duration
	now          func() time.Time

	resultMu    sync.Mutex
	resultCache map[string]resultEntry
}

type resultEntry struct {
	series models.PriceSeries
	source string
	at     time.Time
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTierOrder sets the source walk order by tag.
func WithTierOrder(order []string) ServiceOption {
	return func(s *Service) {
		if len(order) > 0 {
			s.tierOrder = order
		}
	}
}

// WithBreaker tunes the per-source circuit breaker.
func WithBreaker(threshold int, cooldown time.Duration) ServiceOption {
	return func(s *Service) {
		s.breaker = newCircuitBreaker(threshold, cooldown, s.now)
	}
}

// WithInflightWait bounds how long duplicate concurrent requests wait for
// the first one's result.
func WithInflightWait(wait time.Duration) ServiceOption {
	return func(s *Service) {
		s.inflight = newInflightGroup(wait)
	}
}

// WithHomeCurrency sets the reporting currency (default JPY).
func WithHomeCurrency(currency string) ServiceOption {
	return func(s *Service) {
		if currency != "" {
			s.homeCurrency = currency
		}
	}
}

// WithResultTTL bounds reuse of in-process resolution results.
func WithResultTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.resultTTL = ttl
		}
	}
}

// WithClock overrides the clock used by the breaker and result cache.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
			s.breaker.now = now
		}
	}
}

// NewService creates the resolution coordinator. sources are registered by
// their Name() tag; the tier order decides which of them are walked and when.
func NewService(cache *pricecache.Service, sources []interfaces.PriceSource, transactions interfaces.TransactionStore, holdings interfaces.HoldingStore, opts ...ServiceOption) *Service {
	s := &Service{
		cache:        cache,
		sources:      make(map[string]interfaces.PriceSource, len(sources)),
		tierOrder:    append([]string(nil), models.DurableSources...),
		transactions: transactions,
		holdings:     holdings,
		logger:       common.NewSilentLogger(),
		homeCurrency: "JPY",
		resultTTL:    DefaultResultTTL,
		now:          time.Now,
		resultCache:  make(map[string]resultEntry),
	}
	s.breaker = newCircuitBreaker(3, 60*time.Second, s.now)
	s.inflight = newInflightGroup(5 * time.Second)

	for _, src := range sources {
		s.sources[src.Name()] = src
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// GetPriceHistory resolves a daily price series for [from, to] and reports
// the source tag that produced it. Provider failures degrade through the
// tiers; the only error returned for bad input is an inverted window.
func (s *Service) GetPriceHistory(ctx context.Context, symbol, name string, from, to time.Time, portfolioID string) (models.PriceSeries, string, error) {
	return s.getPriceHistory(ctx, symbol, name, from, to, portfolioID, false)
}

// RefreshPriceHistory bypasses cached data and pulls the window from the
// source tiers again, re-persisting whatever they return. Interpolation and
// the terminal "none" result behave as in GetPriceHistory.
func (s *Service) RefreshPriceHistory(ctx context.Context, symbol, name string, from, to time.Time, portfolioID string) (models.PriceSeries, string, error) {
	return s.getPriceHistory(ctx, symbol, name, from, to, portfolioID, true)
}

func (s *Service) getPriceHistory(ctx context.Context, symbol, name string, from, to time.Time, portfolioID string, refresh bool) (models.PriceSeries, string, error) {
	fromDay, toDay := models.Day(from), models.Day(to)
	if fromDay.After(toDay) {
		return nil, "", fmt.Errorf("invalid window: from %s is after to %s", fromDay.Format("2006-01-02"), toDay.Format("2006-01-02"))
	}

	canonical, display := alias.Resolve(symbol, name)

	// Transactions bound the useful window: nothing was held before the
	// first trade, so don't chase providers for earlier history.
	txs, err := s.transactions.ListTransactions(ctx, portfolioID, canonical)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", canonical).Msg("Transaction lookup failed, window not clamped")
		txs = nil
	}
	if len(txs) > 0 {
		if first := models.Day(txs[0].Date); first.After(fromDay) && !first.After(toDay) {
			fromDay = first
		}
	}

	key := canonical + "|" + fromDay.Format("20060102") + "|" + toDay.Format("20060102")
	if refresh {
		key += "|refresh"
	}
	return s.inflight.Do(ctx, key, func() (models.PriceSeries, string, error) {
		return s.resolve(ctx, key, canonical, display, fromDay, toDay, txs, refresh)
	})
}

type cachedPartial struct {
	series models.PriceSeries
	fresh  bool
}

func (s *Service) resolve(ctx context.Context, key, canonical, display string, fromDay, toDay time.Time, txs []*models.Transaction, refresh bool) (models.PriceSeries, string, error) {
	if !refresh {
		if series, source, ok := s.recallResult(key); ok {
			return series, source, nil
		}
	}

	ticker := alias.ProviderTicker(canonical)
	currency := s.securityCurrency(canonical)

	// Durable cache scan in preference order. A fresh series covering the
	// window wins outright; partials are kept for merging after a fetch.
	// A forced refresh skips the scan and goes straight to the providers.
	partials := make(map[string]cachedPartial)
	if !refresh {
		for _, source := range models.DurableSources {
			series, fresh, err := s.cache.Lookup(ctx, canonical, ticker, source, fromDay, toDay)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", canonical).Str("source", source).Msg("Cache read failed")
				continue
			}
			if fresh && series.Covers(fromDay, toDay) {
				return series, source, nil
			}
			if len(series) > 0 {
				partials[source] = cachedPartial{series: series, fresh: fresh}
			}
		}
	}

	// Tier walk. Each source gets one shot per resolution; its own bounded
	// retries live inside the adapter.
	for _, tag := range s.tierOrder {
		src, ok := s.sources[tag]
		if !ok {
			continue
		}
		if !s.breaker.Allow(canonical, tag) {
			s.logger.Debug().Str("source", tag).Msg("Circuit open, skipping tier")
			continue
		}

		// The NAV tier is keyed by fund display name, not ticker
		fetchTicker := ticker
		if tag == models.SourceNAV {
			fetchTicker = display
		}

		fetched, err := s.fetchTier(ctx, src, fetchTicker, canonical, ticker, currency, fromDay, toDay, partials[tag])
		if err != nil {
			s.breaker.Failure(canonical, tag)
			s.logger.Warn().Err(err).Str("symbol", canonical).Str("source", tag).Msg("Source tier failed, advancing")
			continue
		}
		s.breaker.Success(canonical, tag)

		combined := fetched.Merge(partials[tag].series).Clip(fromDay, toDay)
		if len(combined) > 0 {
			return combined, tag, nil
		}
	}

	// Last resort: estimate from the user's own transaction prices. Never
	// persisted; only the in-process result cache remembers it.
	if est := Interpolate(anchorsFromTransactions(txs), fromDay, toDay); len(est) > 0 {
		s.logger.Info().Str("symbol", canonical).Int("rows", len(est)).Msg("No source had data, interpolating from transactions")
		s.storeResult(key, est, models.SourceInterpolated)
		return est, models.SourceInterpolated, nil
	}

	return nil, models.SourceNone, nil
}

// fetchTier pulls the window from one source. When the cache already holds a
// fresh series that starts at the window but ends short, only the trailing
// gap is fetched; otherwise the full window goes through the chunked
// fetch-and-cache path.
func (s *Service) fetchTier(ctx context.Context, src interfaces.PriceSource, fetchTicker, symbol, ticker, currency string, fromDay, toDay time.Time, partial cachedPartial) (models.PriceSeries, error) {
	if partial.fresh && len(partial.series) > 0 && !partial.series.FirstDate().After(fromDay) {
		gapFrom, gapTo, ok := pricecache.ForwardGap(partial.series, toDay)
		if ok {
			fetched, err := src.Fetch(ctx, fetchTicker, gapFrom, gapTo)
			if err != nil {
				return nil, err
			}
			if fetched != nil {
				// The fetched gap is still usable when the write fails;
				// only the fetch itself may fail this tier
				if err := s.cache.Persist(ctx, symbol, ticker, src.Name(), currency, fetched); err != nil {
					s.logger.Warn().Err(err).Str("symbol", symbol).Str("source", src.Name()).Msg("Gap persist failed, returning fetched data uncached")
				}
			}
			return fetched, nil
		}
	}
	return s.cache.FetchAndCache(ctx, src, fetchTicker, symbol, ticker, currency, fromDay, toDay)
}

func (s *Service) securityCurrency(symbol string) string {
	if alias.IsUSSecurity(symbol) {
		return "USD"
	}
	return s.homeCurrency
}

func (s *Service) recallResult(key string) (models.PriceSeries, string, bool) {
	s.resultMu.Lock()
	defer s.resultMu.Unlock()
	e, ok := s.resultCache[key]
	if !ok || s.now().Sub(e.at) >= s.resultTTL {
		delete(s.resultCache, key)
		return nil, "", false
	}
	return e.series, e.source, true
}

func (s *Service) storeResult(key string, series models.PriceSeries, source string) {
	s.resultMu.Lock()
	defer s.resultMu.Unlock()
	s.resultCache[key] = resultEntry{series: series, source: source, at: s.now()}
}

// Ensure Service implements PriceService
var _ interfaces.PriceService = (*Service)(nil)
