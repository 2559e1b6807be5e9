// Package app wires configuration, storage, provider clients and services
// into one application core shared by the server binary and tests.
package app

import (
	"fmt"
	"time"

	"github.com/hirokada/shisan/internal/clients/toshin"
	"github.com/hirokada/shisan/internal/clients/twelvedata"
	"github.com/hirokada/shisan/internal/clients/yahoochart"
	"github.com/hirokada/shisan/internal/clients/yahooscrape"
	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/services/pricecache"
	"github.com/hirokada/shisan/internal/services/priceresolver"
	"github.com/hirokada/shisan/internal/storage/surrealdb"
)

// App holds all initialized services and clients.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Storage      interfaces.StorageManager
	Cache        *pricecache.Service
	Resolver     *priceresolver.Service
	PriceService interfaces.PriceService
	StartupTime  time.Time
}

// NewApp initializes storage, clients and services from config files.
func NewApp(configPaths ...string) (*App, error) {
	config, err := common.LoadConfig(configPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storage, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	navClient := toshin.NewClient(
		toshin.WithNavDir(config.Clients.Toshin.NavDir),
		toshin.WithLogger(logger),
	)
	scrapeClient := yahooscrape.NewClient(
		yahooscrape.WithBaseURLs(config.Clients.YahooScrape.JPBaseURL, config.Clients.YahooScrape.GlobalBaseURL),
		yahooscrape.WithRateLimit(config.Clients.YahooScrape.RateLimit),
		yahooscrape.WithTimeout(config.Clients.YahooScrape.GetTimeout()),
		yahooscrape.WithMaxPages(config.Clients.YahooScrape.MaxPages),
		yahooscrape.WithRetry(config.Resolver.RetryAttempts, config.Resolver.GetRetryBaseDelay()),
		yahooscrape.WithLogger(logger),
	)
	chartClient := yahoochart.NewClient(
		yahoochart.WithBaseURL(config.Clients.YahooChart.BaseURL),
		yahoochart.WithRateLimit(config.Clients.YahooChart.RateLimit),
		yahoochart.WithTimeout(config.Clients.YahooChart.GetTimeout()),
		yahoochart.WithRetry(config.Resolver.RetryAttempts, config.Resolver.GetRetryBaseDelay()),
		yahoochart.WithLogger(logger),
	)
	altClient := twelvedata.NewClient(
		config.Clients.TwelveData.APIKey,
		twelvedata.WithBaseURL(config.Clients.TwelveData.BaseURL),
		twelvedata.WithAlphaVantage(config.Clients.TwelveData.AlphaVantageBaseURL, config.Clients.TwelveData.AlphaVantageAPIKey),
		twelvedata.WithRateLimit(config.Clients.TwelveData.RateLimit),
		twelvedata.WithTimeout(config.Clients.TwelveData.GetTimeout()),
		twelvedata.WithLogger(logger),
	)

	cache := pricecache.NewService(storage.PriceStorage(),
		pricecache.WithLogger(logger),
		pricecache.WithWindows(config.Cache.PriorityFetchDays, config.Cache.BackfillChunkDays),
		pricecache.WithChunkPause(config.Cache.GetChunkPause()),
	)

	resolver := priceresolver.NewService(cache,
		[]interfaces.PriceSource{navClient, scrapeClient, chartClient, altClient},
		storage.TransactionStorage(),
		storage.HoldingStorage(),
		priceresolver.WithLogger(logger),
		priceresolver.WithTierOrder(config.Resolver.TierOrder),
		priceresolver.WithBreaker(config.Resolver.BreakerThreshold, config.Resolver.GetBreakerCooldown()),
		priceresolver.WithInflightWait(config.Resolver.GetInflightWait()),
		priceresolver.WithHomeCurrency(config.HomeCurrency),
	)

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Strs("tier_order", config.Resolver.TierOrder).
		Msg("Application initialized")

	return &App{
		Config:       config,
		Logger:       logger,
		Storage:      storage,
		Cache:        cache,
		Resolver:     resolver,
		PriceService: resolver,
		StartupTime:  time.Now(),
	}, nil
}

// Close releases storage connections.
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
