// Package common provides shared utilities for Shisan
package common

import "time"

// Re-verification windows for cached price rows. Verification decays with row
// age: today's bar can still change intraday, last week's bar can gain late
// corrections, and anything older than a month is settled history.
const (
	FreshnessToday      = 1 * time.Hour        // age 0 days
	FreshnessRecentWeek = 24 * time.Hour       // age 1-7 days
	FreshnessMonth      = 7 * 24 * time.Hour   // age 8-30 days
	HistoricalAge       = 30                   // days; rows older than this never need re-verification
)

// RowFresh reports whether a cached price row dated rowDate, last verified at
// lastVerified, is still trusted at now. A zero lastVerified means the row was
// never verified and is always stale (unless it is historical).
func RowFresh(rowDate, lastVerified, now time.Time) bool {
	ageDays := int(now.Sub(truncateDay(rowDate)).Hours() / 24)
	if ageDays > HistoricalAge {
		return true // settled history, never re-verify
	}

	if lastVerified.IsZero() {
		return false
	}

	sinceVerify := now.Sub(lastVerified)
	switch {
	case ageDays <= 0:
		return sinceVerify <= FreshnessToday
	case ageDays <= 7:
		return sinceVerify <= FreshnessRecentWeek
	default:
		return sinceVerify <= FreshnessMonth
	}
}

// IsFresh returns true if the given timestamp is within the TTL.
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
