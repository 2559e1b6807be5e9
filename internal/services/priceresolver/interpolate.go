package priceresolver

import (
	"sort"
	"time"

	"github.com/hirokada/shisan/internal/models"
)

// KnownPrice is one anchor for interpolation, typically the implied unit
// price of a transaction.
type KnownPrice struct {
	Date  time.Time
	Price float64
}

// Interpolate builds a daily price series over [from, to] from sparse known
// prices. With no anchors it returns nil. With one anchor the whole window
// is a flat line at that price. With two or more, days between anchors are
// linearly interpolated and days outside the anchor span replicate the
// nearest edge value.
func Interpolate(known []KnownPrice, from, to time.Time) models.PriceSeries {
	if len(known) == 0 {
		return nil
	}
	fromDay, toDay := models.Day(from), models.Day(to)
	if fromDay.After(toDay) {
		return nil
	}

	anchors := make([]KnownPrice, len(known))
	copy(anchors, known)
	for i := range anchors {
		anchors[i].Date = models.Day(anchors[i].Date)
	}
	sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].Date.Before(anchors[j].Date) })

	// Duplicate dates keep the last observation
	dedup := anchors[:0]
	for _, a := range anchors {
		if len(dedup) > 0 && dedup[len(dedup)-1].Date.Equal(a.Date) {
			dedup[len(dedup)-1] = a
			continue
		}
		dedup = append(dedup, a)
	}
	anchors = dedup

	days := int(toDay.Sub(fromDay).Hours()/24) + 1
	series := make(models.PriceSeries, 0, days)
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		series = append(series, models.PricePoint{Date: day, Price: valueAt(anchors, day)})
	}
	return series
}

// valueAt evaluates the piecewise-linear curve defined by anchors at day.
// Outside the anchor span the nearest edge value is held flat.
func valueAt(anchors []KnownPrice, day time.Time) float64 {
	first, last := anchors[0], anchors[len(anchors)-1]
	if !day.After(first.Date) {
		return first.Price
	}
	if !day.Before(last.Date) {
		return last.Price
	}

	for i := 1; i < len(anchors); i++ {
		lo, hi := anchors[i-1], anchors[i]
		if day.After(hi.Date) {
			continue
		}
		if day.Equal(hi.Date) {
			return hi.Price
		}
		span := hi.Date.Sub(lo.Date).Hours() / 24
		offset := day.Sub(lo.Date).Hours() / 24
		return lo.Price + (hi.Price-lo.Price)*(offset/span)
	}
	return last.Price
}

// anchorsFromTransactions derives known prices from transactions that carry
// both an amount and a quantity: the implied unit price at trade date.
func anchorsFromTransactions(txs []*models.Transaction) []KnownPrice {
	var anchors []KnownPrice
	for _, tx := range txs {
		if tx.Quantity <= 0 || tx.AmountJPY <= 0 {
			continue
		}
		anchors = append(anchors, KnownPrice{
			Date:  models.Day(tx.Date),
			Price: tx.AmountJPY / tx.Quantity,
		})
	}
	return anchors
}
