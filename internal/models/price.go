// Package models defines data structures for Shisan
package models

import (
	"sort"
	"time"
)

// Source tags identifying where a price series came from. Tier preference
// among them is configuration, not fixed here.
const (
	SourceScraped      = "scraped"      // Yahoo Finance page scrape
	SourceNAV          = "nav"          // official fund NAV (投信協会 data)
	SourceYahoo        = "yahoo"        // Yahoo chart API
	SourceAlt          = "alt"          // Twelve Data / Alpha Vantage
	SourceInterpolated = "interpolated" // linear estimate between known transaction prices
	SourceNone         = "none"         // terminal "no data" tag
)

// DurableSources lists the source tags that may be persisted to the price
// cache, in default preference order. Interpolated data is deliberately
// absent: it is a last-resort approximation, never written to durable storage.
var DurableSources = []string{SourceNAV, SourceScraped, SourceYahoo, SourceAlt}

// PriceRecord is one cached price row. Uniquely keyed by
// (symbol, ticker, date, source); ID is a surrogate uuid.
type PriceRecord struct {
	ID             string     `json:"id,omitempty"`
	Symbol         string     `json:"symbol"`
	Ticker         string     `json:"ticker"`
	Date           time.Time  `json:"date"`
	Price          float64    `json:"price"`
	NAV            *float64   `json:"nav,omitempty"`
	Diff           *float64   `json:"diff,omitempty"`
	AUMMillion     *float64   `json:"aum_million,omitempty"`
	Source         string     `json:"source"`
	Currency       string     `json:"currency"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
}

// PricePoint is a single dated price in an in-memory series.
type PricePoint struct {
	Date       time.Time `json:"date"`
	Price      float64   `json:"price"`
	NAV        *float64  `json:"nav,omitempty"`
	Diff       *float64  `json:"diff,omitempty"`
	AUMMillion *float64  `json:"aum_million,omitempty"`
}

// PriceSeries is an ordered daily price series. Dates are unique and
// non-decreasing; gaps are legal and represent missing trading days.
type PriceSeries []PricePoint

// Day normalizes a timestamp to a UTC calendar date. All series and cache
// keys use day precision.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Sorted returns the series ordered by date ascending with duplicate dates
// removed, keeping the first occurrence.
func (s PriceSeries) Sorted() PriceSeries {
	if len(s) == 0 {
		return s
	}
	out := make(PriceSeries, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	dedup := out[:1]
	for _, p := range out[1:] {
		if !p.Date.Equal(dedup[len(dedup)-1].Date) {
			dedup = append(dedup, p)
		}
	}
	return dedup
}

// FirstDate returns the earliest date in the series (zero time when empty).
func (s PriceSeries) FirstDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

// LastDate returns the latest date in the series (zero time when empty).
func (s PriceSeries) LastDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// Covers reports whether the series spans [from, to] inclusive. Interior
// gaps do not count against coverage; only the endpoints matter.
func (s PriceSeries) Covers(from, to time.Time) bool {
	if len(s) == 0 {
		return false
	}
	return !s.FirstDate().After(Day(from)) && !s.LastDate().Before(Day(to))
}

// Clip returns the sub-series within [from, to] inclusive.
func (s PriceSeries) Clip(from, to time.Time) PriceSeries {
	from, to = Day(from), Day(to)
	var out PriceSeries
	for _, p := range s {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Merge combines two series into one sorted series. Points from the
// receiver win on date conflicts; other fills the remaining gaps.
func (s PriceSeries) Merge(other PriceSeries) PriceSeries {
	if len(other) == 0 {
		return s.Sorted()
	}
	if len(s) == 0 {
		return other.Sorted()
	}

	seen := make(map[time.Time]struct{}, len(s))
	out := make(PriceSeries, 0, len(s)+len(other))
	for _, p := range s {
		if _, dup := seen[p.Date]; dup {
			continue
		}
		seen[p.Date] = struct{}{}
		out = append(out, p)
	}
	for _, p := range other {
		if _, dup := seen[p.Date]; dup {
			continue
		}
		seen[p.Date] = struct{}{}
		out = append(out, p)
	}
	return out.Sorted()
}

// SeriesFromRecords converts cache rows into an ordered series.
func SeriesFromRecords(records []*PriceRecord) PriceSeries {
	series := make(PriceSeries, 0, len(records))
	for _, r := range records {
		series = append(series, PricePoint{
			Date:       Day(r.Date),
			Price:      r.Price,
			NAV:        r.NAV,
			Diff:       r.Diff,
			AUMMillion: r.AUMMillion,
		})
	}
	return series.Sorted()
}
