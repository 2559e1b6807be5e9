// Package toshin looks up official NAV history for Japanese mutual funds
// (投信協会 data) from a locally maintained CSV directory.
package toshin

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hirokada/shisan/internal/common"
	"github.com/hirokada/shisan/internal/interfaces"
	"github.com/hirokada/shisan/internal/models"
)

// DefaultNavDir is where NAV CSVs are expected when no directory is configured.
const DefaultNavDir = "inputs/nav_cache"

// fundISINs maps fund names to their ISIN, which keys the NAV CSV files.
var fundISINs = map[string]string{
	"eMAXIS Slim 米国株式(S&P500)":          "JP90C000J7J5",
	"eMAXIS Slim 全世界株式(オール・カントリー)":      "JP90C000H5S9",
	"eMAXIS Slim 全世界株式(オール・カントリー)(オルカン)": "JP90C000H5S9",
	"三菱UFJ 純金ファンド(ファインゴールド)":           "JP90C0003K84",
	"eMAXIS Slim 先進国リートインデックス":          "JP90C000M4F5",
	"eMAXIS Slim 先進国リートインデックス(除く日本)":    "JP90C000M4F5",
	"野村Jリートファンド":                       "JP90C0008K80",
	"NZAM・ベータ 米国REIT":                  "JP3027680009",
	"eMAXIS Slim 先進国債券インデックス(除く日本)":     "JP90C000H5R1",
	"たわらノーロード インド株式Nifty50":            "JP90C000N7F5",
	"ニッセイSOX指数インデックスファンド(米国半導体株)＜購入・換金手数料なし＞": "JP90C000E8T2",
	"iFreeNEXT FANG+インデックス":            "JP90C000JDW4",
}

// Client implements the "nav" price source tier. Fetch is keyed by fund
// name rather than ticker; the coordinator passes the resolved display name.
type Client struct {
	navDir string
	logger *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithNavDir sets the NAV CSV directory
func WithNavDir(dir string) ClientOption {
	return func(c *Client) {
		if dir != "" {
			c.navDir = dir
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new NAV lookup client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		navDir: DefaultNavDir,
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the source tag for this tier.
func (c *Client) Name() string {
	return models.SourceNAV
}

// ISIN resolves a fund name to its ISIN: exact match first, then a
// normalized containment check in either direction. Empty when unknown.
func (c *Client) ISIN(fundName string) string {
	if isin, ok := fundISINs[fundName]; ok {
		return isin
	}
	norm := common.NormalizeText(fundName)
	if norm == "" {
		return ""
	}
	for name, isin := range fundISINs {
		n := common.NormalizeText(name)
		if strings.Contains(norm, n) || strings.Contains(n, norm) {
			return isin
		}
	}
	return ""
}

// Fetch reads NAV history for the fund named by ticker (a fund name for
// this tier) within [from, to]. Returns nil when the fund is unknown or no
// local NAV file exists.
func (c *Client) Fetch(ctx context.Context, ticker string, from, to time.Time) (models.PriceSeries, error) {
	isin := c.ISIN(ticker)
	if isin == "" {
		return nil, nil
	}

	path := filepath.Join(c.navDir, isin+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Debug().Str("isin", isin).Msg("No local NAV file")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open NAV file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse NAV file %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	dateCol, navCol := findColumns(rows[0])
	if dateCol < 0 || navCol < 0 {
		c.logger.Warn().Str("isin", isin).Msg("NAV file missing date/NAV columns")
		return nil, nil
	}

	fromDay, toDay := models.Day(from), models.Day(to)
	series := make(models.PriceSeries, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) <= dateCol || len(row) <= navCol {
			continue
		}
		day, ok := parseDate(row[dateCol])
		if !ok || day.Before(fromDay) || day.After(toDay) {
			continue
		}
		nav, ok := parseNumber(row[navCol])
		if !ok {
			continue
		}
		navVal := nav
		series = append(series, models.PricePoint{Date: day, Price: nav, NAV: &navVal})
	}
	if len(series) == 0 {
		return nil, nil
	}

	c.logger.Info().Str("isin", isin).Int("rows", len(series)).Msg("Loaded official NAV history")
	return series.Sorted(), nil
}

// findColumns locates the date and NAV columns by flexible header match
// ("Date"/"基準日", "NAV"/"基準価額", any casing).
func findColumns(header []string) (dateCol, navCol int) {
	dateCol, navCol = -1, -1
	for i, col := range header {
		c := strings.ToLower(strings.TrimSpace(col))
		if dateCol < 0 && (strings.Contains(c, "date") || strings.Contains(c, "基準日") || strings.Contains(c, "年月日")) {
			dateCol = i
		}
		if navCol < 0 && (strings.Contains(c, "nav") || strings.Contains(c, "基準価額")) {
			navCol = i
		}
	}
	return dateCol, navCol
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006/01/02", "2006年1月2日"} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Day(t), true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Ensure Client implements PriceSource
var _ interfaces.PriceSource = (*Client)(nil)
