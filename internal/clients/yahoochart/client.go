// Package yahoochart provides a client for the Yahoo Finance chart API
package yahoochart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

const (
	DefaultBaseURL     = "https://query1.finance.yahoo.com"
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 2 // requests per second
	DefaultMaxAttempts = 2
	DefaultRetryBase   = 500 * time.Millisecond
)

// Client fetches daily bars from the Yahoo chart endpoint. It implements
// interfaces.PriceSource as the "yahoo" tier.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *common.Logger
	limiter     *rate.Limiter
	maxAttempts int
	retryBase   time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
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

// NewClient creates a new Yahoo chart API client.
// No API key is required; this is a public endpoint.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:      common.NewSilentLogger(),
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
	return models.SourceYahoo
}

// APIError represents a non-OK chart API response
type APIError struct {
	StatusCode int
	Message    string
	Ticker     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo chart API error: %s (status: %d, ticker: %s)", e.Message, e.StatusCode, e.Ticker)
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves adjusted daily closes for [from, to] inclusive. A nil
// series with nil error means the ticker has no data for the window.
func (c *Client) Fetch(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	var series models.PriceSeries

	op := func() error {
		s, err := c.fetchOnce(ctx, ticker, from, to)
		if err != nil {
			return err
		}
		series = s
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return series, nil
}

func (c *Client) fetchOnce(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
	}

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(models.Day(from).Unix(), 10))
	// period2 is exclusive on the API side; push it one day past the window
	params.Set("period2", strconv.FormatInt(models.Day(to).AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "div,split")

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("ticker", ticker).Msg("Yahoo chart API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Error().Err(err).Str("ticker", ticker).Dur("elapsed", elapsed).Msg("Yahoo chart API request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	// 404 means the ticker is unknown to this provider: no data, not a failure
	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug().Str("ticker", ticker).Msg("Yahoo chart API: ticker not found")
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn().Str("ticker", ticker).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("Yahoo chart API non-OK response")
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Ticker: ticker}
	}

	var apiResp chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if apiResp.Chart.Error != nil {
		c.logger.Debug().Str("ticker", ticker).Str("code", apiResp.Chart.Error.Code).Msg("Yahoo chart API error payload")
		return nil, nil
	}
	if len(apiResp.Chart.Result) == 0 {
		return nil, nil
	}

	result := apiResp.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, nil
	}

	// Prefer adjusted closes (splits/dividends applied) when present
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(closes) == 0 {
		return nil, nil
	}

	fromDay, toDay := models.Day(from), models.Day(to)
	series := make(models.PriceSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		day := models.Day(time.Unix(ts, 0))
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		series = append(series, models.PricePoint{Date: day, Price: *closes[i]})
	}

	c.logger.Info().Str("ticker", ticker).Int("rows", len(series)).Dur("elapsed", elapsed).Msg("Yahoo chart API call")

	if len(series) == 0 {
		return models.PriceSeries{}, nil
	}
	return series.Sorted(), nil
}

// Ensure Client implements PriceSource
var _ interfaces.PriceSource = (*Client)(nil)
