// Package yahooscrape scrapes historical price tables from Yahoo Finance
// web pages. It is the "scraped" tier: Japanese securities route to the
// Yahoo Japan history pages, everything else to the global site.
package yahooscrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

const (
	DefaultJPBaseURL     = "https://finance.yahoo.co.jp"
	DefaultGlobalBaseURL = "https://finance.yahoo.com"
	DefaultTimeout       = 30 * time.Second
	DefaultRateLimit     = 1 // requests per second
	DefaultMaxPages      = 25
	DefaultMaxAttempts   = 2
	DefaultRetryBase     = 500 * time.Millisecond
)

// Client implements the "scraped" price source tier.
type Client struct {
	jpBaseURL     string
	globalBaseURL string
	httpClient    *http.Client
	logger        *common.Logger
	limiter       *rate.Limiter
	maxPages      int
	maxAttempts   int
	retryBase     time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURLs sets the Japanese and global site base URLs
func WithBaseURLs(jp, global string) ClientOption {
	return func(c *Client) {
		if jp != "" {
			c.jpBaseURL = jp
		}
		if global != "" {
			c.globalBaseURL = global
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxPages bounds how many history pages one fetch may walk.
func WithMaxPages(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// WithRetry bounds the attempt count and sets the initial backoff interval.
func WithRetry(attempts int, base time.Duration) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

// NewClient creates a new history page scraper.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		jpBaseURL:     DefaultJPBaseURL,
		globalBaseURL: DefaultGlobalBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:      common.NewSilentLogger(),
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxPages:    DefaultMaxPages,
		maxAttempts: DefaultMaxAttempts,
		retryBase:   DefaultRetryBase,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the source tag for this tier.
func (c *Client) Name() string {
	return models.SourceScraped
}

// isJapaneseCode reports whether a ticker is a Tokyo listing or JP fund
// code: digits with an optional .T suffix or a single trailing letter.
func isJapaneseCode(ticker string) bool {
	code := strings.TrimSuffix(ticker, ".T")
	if code == "" {
		return false
	}
	digits := 0
	for i, r := range code {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case i == len(code)-1 && ((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')):
			// trailing fund-code letter
		default:
			return false
		}
	}
	return digits > 0
}

// historyURL routes the ticker to the right site. Japanese codes and fund
// codes use the Yahoo Japan history page; everything else the global one.
func (c *Client) historyURL(ticker string, from, to time.Time) string {
	if isJapaneseCode(ticker) {
		code := strings.TrimSuffix(ticker, ".T")
		params := url.Values{}
		params.Set("from", models.Day(from).Format("20060102"))
		params.Set("to", models.Day(to).Format("20060102"))
		params.Set("timeFrame", "d")
		return fmt.Sprintf("%s/quote/%s/history?%s", c.jpBaseURL, url.PathEscape(code), params.Encode())
	}
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", models.Day(from).Unix()))
	params.Set("period2", fmt.Sprintf("%d", models.Day(to).AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	return fmt.Sprintf("%s/quote/%s/history?%s", c.globalBaseURL, url.PathEscape(ticker), params.Encode())
}

// Fetch scrapes daily prices for [from, to], following "next" pagination
// until the window is covered, the control disappears, the page stops
// changing, or the page cap is hit. Duplicate dates keep the first
// occurrence seen.
func (c *Client) Fetch(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	fromDay, toDay := models.Day(from), models.Day(to)
	pageURL := c.historyURL(ticker, fromDay, toDay)

	seen := make(map[time.Time]bool)
	var series models.PriceSeries
	var lastSnapshot string
	tableFound := false

	for page := 0; page < c.maxPages; page++ {
		doc, notFound, err := c.fetchPage(ctx, pageURL, ticker)
		if err != nil {
			return nil, err
		}
		if notFound {
			// Unknown ticker on this site: no data rather than a failure
			return nil, nil
		}

		rows, strategy := parseHistoryTable(doc)
		if rows == nil {
			if tableFound {
				break // earlier pages had data; the tail page is empty
			}
			// No strategy matched on the first page: the page layout has
			// drifted, treat like any other provider failure
			return nil, fmt.Errorf("no history table recognized for %s at %s", ticker, pageURL)
		}
		tableFound = true

		snapshot := pageSnapshot(rows)
		if snapshot == lastSnapshot {
			c.logger.Debug().Str("ticker", ticker).Int("page", page).Msg("Pagination stopped advancing")
			break
		}
		lastSnapshot = snapshot

		oldest := time.Time{}
		for _, r := range rows {
			if oldest.IsZero() || r.date.Before(oldest) {
				oldest = r.date
			}
			if r.date.Before(fromDay) || r.date.After(toDay) || seen[r.date] {
				continue
			}
			seen[r.date] = true
			series = append(series, models.PricePoint{
				Date:       r.date,
				Price:      r.price,
				NAV:        r.nav,
				Diff:       r.diff,
				AUMMillion: r.aum,
			})
		}
		c.logger.Debug().Str("ticker", ticker).Int("page", page).Str("strategy", strategy).Int("rows", len(rows)).Msg("Scraped history page")

		// All remaining pages are older than the window
		if !oldest.IsZero() && oldest.Before(fromDay) {
			break
		}

		next := findNextURL(doc)
		if next == "" {
			break
		}
		resolved, err := resolveURL(pageURL, next)
		if err != nil || resolved == pageURL {
			break
		}
		pageURL = resolved
	}

	if len(series) == 0 {
		if tableFound {
			return models.PriceSeries{}, nil
		}
		return nil, nil
	}

	c.logger.Info().Str("ticker", ticker).Int("rows", len(series)).Msg("Scraped price history")
	return series.Sorted(), nil
}

// fetchPage retrieves and parses one history page, with bounded retries on
// transient failures. notFound is true on a 404.
func (c *Client) fetchPage(ctx context.Context, pageURL, ticker string) (doc *html.Node, notFound bool, err error) {
	op := func() error {
		d, nf, e := c.fetchPageOnce(ctx, pageURL, ticker)
		if e != nil {
			return e
		}
		doc, notFound = d, nf
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, false, err
	}
	return doc, notFound, nil
}

func (c *Client) fetchPageOnce(ctx context.Context, pageURL, ticker string) (*html.Node, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept-Language", "ja,en;q=0.8")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("ticker", ticker).Dur("elapsed", elapsed).Msg("History page request failed")
		return nil, false, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn().Str("ticker", ticker).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("History page non-OK response")
		return nil, false, fmt.Errorf("history page error: status %d for %s: %s", resp.StatusCode, ticker, strings.TrimSpace(string(body)))
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, false, nil
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// Ensure Client implements PriceSource
var _ interfaces.PriceSource = (*Client)(nil)
