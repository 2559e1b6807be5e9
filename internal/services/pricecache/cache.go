// Package pricecache implements the persistent price cache policy: freshness
// checking on reads, forward-gap fills, and chunked backward backfill on
// cold fetches.
package pricecache

import (
	"context"
	"time"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

// Service wraps a PriceStore with the cache read/write policy. All window
// tunables come from configuration so tests can shrink them to zero.
type Service struct {
	store        interfaces.PriceStore
	logger       *common.Logger
	priorityDays int
	chunkDays    int
	chunkPause   time.Duration

	// injectable clock for freshness tests
	now func() time.Time
}

// ServiceOption configures the service
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithWindows sets the priority fetch window and backfill chunk size in days.
func WithWindows(priorityDays, chunkDays int) ServiceOption {
	return func(s *Service) {
		if priorityDays > 0 {
			s.priorityDays = priorityDays
		}
		if chunkDays > 0 {
			s.chunkDays = chunkDays
		}
	}
}

// WithChunkPause sets the pause between backfill chunk fetches.
func WithChunkPause(d time.Duration) ServiceOption {
	return func(s *Service) {
		s.chunkPause = d
	}
}

// WithClock overrides the freshness clock.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a cache policy service over a price store.
func NewService(store interfaces.PriceStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:        store,
		logger:       common.NewSilentLogger(),
		priorityDays: 365,
		chunkDays:    365,
		chunkPause:   2 * time.Second,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Lookup reads the cached series for one source within [from, to]. fresh is
// true when every returned row is still trusted for its age; a complete hit
// additionally requires the series to cover the window endpoints
// (series.Covers). A partial or stale series is still returned so the caller
// can merge it with newly fetched data or fill only the forward gap.
func (s *Service) Lookup(ctx context.Context, symbol, ticker, source string, from, to time.Time) (series models.PriceSeries, fresh bool, err error) {
	records, err := s.store.GetRange(ctx, symbol, ticker, source, from, to)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}

	now := s.now()
	fresh = true
	for _, r := range records {
		var verified time.Time
		if r.LastVerifiedAt != nil {
			verified = *r.LastVerifiedAt
		}
		if !common.RowFresh(r.Date, verified, now) {
			fresh = false
			break
		}
	}

	series = models.SeriesFromRecords(records)

	s.logger.Debug().
		Str("symbol", symbol).
		Str("source", source).
		Int("rows", len(series)).
		Bool("fresh", fresh).
		Msg("Cache lookup")

	return series, fresh, nil
}

// ForwardGap returns the missing leading-edge window when cached data ends
// before the requested end. ok is false when there is no cached data at all
// or nothing is missing. Only the forward gap is ever filled on reads;
// older holes wait for an explicit backfill.
func ForwardGap(cached models.PriceSeries, to time.Time) (gapFrom, gapTo time.Time, ok bool) {
	last := cached.LastDate()
	if last.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	toDay := models.Day(to)
	if !last.Before(toDay) {
		return time.Time{}, time.Time{}, false
	}
	return last.AddDate(0, 0, 1), toDay, true
}

// Persist writes a fetched series to the durable cache under the source tag.
func (s *Service) Persist(ctx context.Context, symbol, ticker, source, currency string, series models.PriceSeries) error {
	if len(series) == 0 {
		return nil
	}
	return s.store.UpsertBatch(ctx, symbol, ticker, source, currency, series)
}

// FetchAndCache pulls [from, to] from a source and persists what arrives.
// The recent priority window is fetched first so fresh data lands
// immediately; older history is then backfilled backward in bounded chunks
// with a pause between provider calls. Backfill stops at the first empty
// chunk (listing start reached) or the first error, keeping whatever was
// already stored. Store write failures are logged and the fetched rows are
// returned anyway; only provider failures surface as errors.
//
// A nil series with nil error means the source has no data for this ticker.
func (s *Service) FetchAndCache(ctx context.Context, src interfaces.PriceSource, fetchTicker, symbol, ticker, currency string, from, to time.Time) (models.PriceSeries, error) {
	fromDay, toDay := models.Day(from), models.Day(to)

	priorityFrom := models.Day(s.now()).AddDate(0, 0, -s.priorityDays)
	if priorityFrom.Before(fromDay) {
		priorityFrom = fromDay
	}
	if priorityFrom.After(toDay) {
		priorityFrom = toDay
	}

	series, err := src.Fetch(ctx, fetchTicker, priorityFrom, toDay)
	if err != nil {
		return nil, err
	}
	if series == nil {
		return nil, nil
	}
	// A cache write failure loses durability, not the answer: the fetched
	// rows are still returned to the caller.
	if err := s.Persist(ctx, symbol, ticker, src.Name(), currency, series); err != nil {
		s.logger.Warn().Err(err).
			Str("symbol", symbol).
			Str("source", src.Name()).
			Msg("Cache write failed, returning fetched data uncached")
	}

	combined := series

	// Backward backfill for history older than the priority window.
	chunkEnd := priorityFrom.AddDate(0, 0, -1)
	for !chunkEnd.Before(fromDay) {
		chunkStart := chunkEnd.AddDate(0, 0, -(s.chunkDays - 1))
		if chunkStart.Before(fromDay) {
			chunkStart = fromDay
		}

		if err := s.pause(ctx); err != nil {
			break
		}

		chunk, err := src.Fetch(ctx, fetchTicker, chunkStart, chunkEnd)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("symbol", symbol).
				Str("source", src.Name()).
				Time("chunk_start", chunkStart).
				Msg("Backfill chunk failed, keeping partial history")
			break
		}
		if len(chunk) == 0 {
			// Listing start reached; nothing older exists
			break
		}
		if err := s.Persist(ctx, symbol, ticker, src.Name(), currency, chunk); err != nil {
			// Keep what we have; retrying older chunks against a broken
			// store would only burn provider quota
			s.logger.Warn().Err(err).
				Str("symbol", symbol).
				Str("source", src.Name()).
				Msg("Cache write failed, stopping backfill with partial history")
			combined = combined.Merge(chunk)
			break
		}

		combined = combined.Merge(chunk)
		chunkEnd = chunkStart.AddDate(0, 0, -1)
	}

	s.logger.Info().
		Str("symbol", symbol).
		Str("source", src.Name()).
		Int("rows", len(combined)).
		Msg("Fetched and cached price history")

	return combined.Clip(fromDay, toDay), nil
}

// Clear drops cached rows for a symbol/ticker pair.
func (s *Service) Clear(ctx context.Context, symbol, ticker string) (int, error) {
	return s.store.Clear(ctx, symbol, ticker)
}

func (s *Service) pause(ctx context.Context) error {
	if s.chunkPause <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.chunkPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
