// Package twelvedata provides the secondary market-data adapter: Twelve
// Data preferred, Alpha Vantage as the in-adapter fallback.
package twelvedata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

const (
	DefaultBaseURL             = "https://api.twelvedata.com"
	DefaultAlphaVantageBaseURL = "https://www.alphavantage.co"
	DefaultTimeout             = 15 * time.Second
	DefaultRateLimit           = 1 // requests per second
)

// Client implements the "alt" price source tier.
type Client struct {
	http            *resty.Client
	alphaVantageURL string
	apiKey          string
	avAPIKey        string
	logger          *common.Logger
	limiter         *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the Twelve Data base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.http.SetBaseURL(baseURL)
	}
}

// WithAlphaVantage sets the Alpha Vantage fallback base URL and key
func WithAlphaVantage(baseURL, apiKey string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.alphaVantageURL = baseURL
		}
		c.avAPIKey = apiKey
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
		c.http.SetTimeout(timeout)
	}
}

// NewClient creates a new secondary provider client. apiKey is the Twelve
// Data key; either provider may be left unconfigured.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		http:            resty.New().SetBaseURL(DefaultBaseURL).SetTimeout(DefaultTimeout),
		alphaVantageURL: DefaultAlphaVantageBaseURL,
		apiKey:          apiKey,
		logger:          common.NewSilentLogger(),
		limiter:         rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the source tag for this tier.
func (c *Client) Name() string {
	return models.SourceAlt
}

type timeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
	} `json:"values"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type alphaVantageResponse struct {
	Series map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
	Note         string `json:"Note"`
	ErrorMessage string `json:"Error Message"`
}

// Fetch tries configured providers in order: Twelve Data, then Alpha
// Vantage. Returns nil when neither provider has data for the ticker.
func (c *Client) Fetch(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	if c.apiKey == "" && c.avAPIKey == "" {
		return nil, nil // not configured, this tier has nothing to offer
	}

	var lastErr error

	if c.apiKey != "" {
		series, err := c.fetchTwelveData(ctx, ticker, from, to)
		if err == nil && series != nil {
			return series, nil
		}
		lastErr = err
	}

	if c.avAPIKey != "" {
		series, err := c.fetchAlphaVantage(ctx, ticker, from, to)
		if err == nil && series != nil {
			return series, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, nil
}

func (c *Client) fetchTwelveData(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var out timeSeriesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":     ticker,
			"interval":   "1day",
			"start_date": models.Day(from).Format("2006-01-02"),
			"end_date":   models.Day(to).Format("2006-01-02"),
			"apikey":     c.apiKey,
			"dp":         "6",
			"order":      "ASC",
		}).
		SetResult(&out).
		Get("/time_series")
	if err != nil {
		return nil, fmt.Errorf("twelve data request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("twelve data error: status %d for ticker %s", resp.StatusCode(), ticker)
	}
	if out.Status == "error" {
		c.logger.Debug().Str("ticker", ticker).Str("message", out.Message).Msg("Twelve Data error payload")
		return nil, nil
	}
	if len(out.Values) == 0 {
		return nil, nil
	}

	fromDay, toDay := models.Day(from), models.Day(to)
	series := make(models.PriceSeries, 0, len(out.Values))
	for _, v := range out.Values {
		day, err := time.Parse("2006-01-02", v.Datetime)
		if err != nil {
			continue
		}
		day = models.Day(day)
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		price, err := strconv.ParseFloat(v.Close, 64)
		if err != nil {
			continue
		}
		series = append(series, models.PricePoint{Date: day, Price: price})
	}
	if len(series) == 0 {
		return nil, nil
	}

	c.logger.Info().Str("ticker", ticker).Int("rows", len(series)).Str("provider", "twelvedata").Msg("Secondary provider call")
	return series.Sorted(), nil
}

func (c *Client) fetchAlphaVantage(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var out alphaVantageResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY_ADJUSTED",
			"symbol":     ticker,
			"outputsize": "full",
			"apikey":     c.avAPIKey,
		}).
		SetResult(&out).
		Get(c.alphaVantageURL + "/query")
	if err != nil {
		return nil, fmt.Errorf("alpha vantage request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpha vantage error: status %d for ticker %s", resp.StatusCode(), ticker)
	}
	if out.Note != "" {
		// Rate-limit note is transient, let the breaker see it
		return nil, fmt.Errorf("alpha vantage throttled: %s", out.Note)
	}
	if out.ErrorMessage != "" || len(out.Series) == 0 {
		return nil, nil
	}

	fromDay, toDay := models.Day(from), models.Day(to)
	series := make(models.PriceSeries, 0, len(out.Series))
	for dayStr, row := range out.Series {
		day, err := time.Parse("2006-01-02", dayStr)
		if err != nil {
			continue
		}
		day = models.Day(day)
		if day.Before(fromDay) || day.After(toDay) {
			continue
		}
		price, err := strconv.ParseFloat(row.Close, 64)
		if err != nil {
			continue
		}
		series = append(series, models.PricePoint{Date: day, Price: price})
	}
	if len(series) == 0 {
		return nil, nil
	}

	c.logger.Info().Str("ticker", ticker).Int("rows", len(series)).Str("provider", "alphavantage").Msg("Secondary provider call")
	return series.Sorted(), nil
}

// Ensure Client implements PriceSource
var _ interfaces.PriceSource = (*Client)(nil)
