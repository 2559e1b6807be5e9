package toshin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func writeNavFile(t *testing.T, dir, isin, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, isin+".csv"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestISIN_ExactAndFuzzy(t *testing.T) {
	c := NewClient()

	if got := c.ISIN("eMAXIS Slim 米国株式(S&P500)"); got != "JP90C000J7J5" {
		t.Errorf("exact match = %q", got)
	}
	// Full-width variant of the same name
	if got := c.ISIN("ｅＭＡＸＩＳ Ｓｌｉｍ 米国株式(S&P500)"); got != "JP90C000J7J5" {
		t.Errorf("normalized match = %q", got)
	}
	if got := c.ISIN("知らないファンド"); got != "" {
		t.Errorf("unknown fund should have no ISIN, got %q", got)
	}
}

func TestFetch_ReadsJapaneseHeaders(t *testing.T) {
	dir := t.TempDir()
	writeNavFile(t, dir, "JP90C000J7J5", "年月日,基準価額(円),純資産総額(百万円)\n2024年12月26日,\"33,100\",1000\n2024年12月27日,\"33,250\",1001\n")

	c := NewClient(WithNavDir(dir))
	series, err := c.Fetch(context.Background(), "eMAXIS Slim 米国株式(S&P500)", day("2024-12-01"), day("2024-12-31"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("len = %d, want 2", len(series))
	}
	if series[0].Price != 33100 {
		t.Errorf("price = %v, want 33100", series[0].Price)
	}
	if series[0].NAV == nil || *series[0].NAV != 33100 {
		t.Error("NAV side-channel should be set")
	}
}

func TestFetch_EnglishHeadersAndRangeFilter(t *testing.T) {
	dir := t.TempDir()
	writeNavFile(t, dir, "JP90C000J7J5", "Date,NAV\n2024-12-20,32900\n2024-12-26,33100\n2025-01-06,33400\n")

	c := NewClient(WithNavDir(dir))
	series, err := c.Fetch(context.Background(), "eMAXIS Slim 米国株式(S&P500)", day("2024-12-25"), day("2024-12-31"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(series) != 1 || !series[0].Date.Equal(day("2024-12-26")) {
		t.Errorf("range filter failed: %v", series)
	}
}

func TestFetch_UnknownFund(t *testing.T) {
	c := NewClient(WithNavDir(t.TempDir()))
	series, err := c.Fetch(context.Background(), "知らないファンド", day("2024-01-01"), day("2024-12-31"))
	if err != nil || series != nil {
		t.Errorf("unknown fund should be (nil, nil), got %v %v", series, err)
	}
}

func TestFetch_MissingFile(t *testing.T) {
	c := NewClient(WithNavDir(t.TempDir()))
	series, err := c.Fetch(context.Background(), "eMAXIS Slim 米国株式(S&P500)", day("2024-01-01"), day("2024-12-31"))
	if err != nil || series != nil {
		t.Errorf("missing NAV file should be (nil, nil), got %v %v", series, err)
	}
}
