package yahooscrape

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
)

const fundPageHTML = `<html><body>
<table class="padst-basic-table">
<tr><th>日付</th><th>基準価額</th><th>前日比</th><th>純資産残高</th></tr>
<tr><td>2024年12月30日</td><td>25,432円</td><td>+120</td><td>45,678</td></tr>
<tr><td>2024年12月27日</td><td>25,312円</td><td>-58</td><td>45,600</td></tr>
</table>
<a href="/quote/0331418A/history?page=2">次へ</a>
</body></html>`

const stockPageHTML = `<html><body>
<div data-test="historical-prices">
<table>
<tr><th>Date</th><th>Open</th><th>High</th><th>Low</th><th>Close</th><th>Volume</th></tr>
<tr><td>Dec 30, 2024</td><td>80.10</td><td>82.00</td><td>79.50</td><td>81.25</td><td>1,234,000</td></tr>
</table>
</div>
</body></html>`

const noTableHTML = `<html><body><div>メンテナンス中です</div></body></html>`

func parseDoc(t *testing.T, raw string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

func TestParseHistoryTable_FundLayout(t *testing.T) {
	rows, strategy := parseHistoryTable(parseDoc(t, fundPageHTML))
	if strategy != "class-hint" {
		t.Errorf("strategy = %q, want class-hint", strategy)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	r := rows[0]
	want := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	if !r.date.Equal(want) {
		t.Errorf("date = %v, want %v", r.date, want)
	}
	if r.price != 25432 {
		t.Errorf("price = %v, want 25432", r.price)
	}
	if r.nav == nil || *r.nav != 25432 {
		t.Error("fund row should carry NAV")
	}
	if r.diff == nil || *r.diff != 120 {
		t.Errorf("diff missing or wrong: %v", r.diff)
	}
	if r.aum == nil || *r.aum != 45678 {
		t.Errorf("aum missing or wrong: %v", r.aum)
	}
}

func TestParseHistoryTable_StockLayoutUsesClose(t *testing.T) {
	rows, strategy := parseHistoryTable(parseDoc(t, stockPageHTML))
	if strategy != "data-test" {
		t.Errorf("strategy = %q, want data-test", strategy)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].price != 81.25 {
		t.Errorf("price = %v, want close 81.25", rows[0].price)
	}
	if rows[0].nav != nil {
		t.Error("stock rows should not carry NAV")
	}
}

func TestParseHistoryTable_NoTable(t *testing.T) {
	rows, _ := parseHistoryTable(parseDoc(t, noTableHTML))
	if rows != nil {
		t.Errorf("expected no rows, got %v", rows)
	}
}

func TestFindNextURL(t *testing.T) {
	if got := findNextURL(parseDoc(t, fundPageHTML)); got != "/quote/0331418A/history?page=2" {
		t.Errorf("findNextURL = %q", got)
	}
	if got := findNextURL(parseDoc(t, noTableHTML)); got != "" {
		t.Errorf("expected no next control, got %q", got)
	}
}

func TestFindNextURL_RelNextPreferred(t *testing.T) {
	page := `<html><body>
	<a href="/other">次へ</a>
	<a rel="next" href="/page3">3</a>
	</body></html>`
	if got := findNextURL(parseDoc(t, page)); got != "/page3" {
		t.Errorf("rel=next should win, got %q", got)
	}
}

func TestPageSnapshot_DetectsIdenticalPages(t *testing.T) {
	rowsA, _ := parseHistoryTable(parseDoc(t, fundPageHTML))
	rowsB, _ := parseHistoryTable(parseDoc(t, fundPageHTML))
	if pageSnapshot(rowsA) != pageSnapshot(rowsB) {
		t.Error("identical pages should have identical snapshots")
	}

	rowsC, _ := parseHistoryTable(parseDoc(t, stockPageHTML))
	if pageSnapshot(rowsA) == pageSnapshot(rowsC) {
		t.Error("different pages should differ")
	}
}

func TestParseRowDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024年12月30日", "2024-12-30", true},
		{"2024年1月5日", "2024-01-05", true},
		{"Dec 30, 2024", "2024-12-30", true},
		{"2024/12/30", "2024-12-30", true},
		{"合計", "", false},
	}
	for _, tt := range tests {
		got, ok := parseRowDate(tt.in)
		if ok != tt.ok {
			t.Errorf("parseRowDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.Format("2006-01-02") != tt.want {
			t.Errorf("parseRowDate(%q) = %v, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	if v, ok := parseNumber("25,432円"); !ok || v != 25432 {
		t.Errorf("parseNumber = %v %v", v, ok)
	}
	if v, ok := parseNumber("+120"); !ok || v != 120 {
		t.Errorf("signed value: %v %v", v, ok)
	}
	if _, ok := parseNumber("-"); ok {
		t.Error("dash placeholder should not parse")
	}
	if _, ok := parseNumber("日付"); ok {
		t.Error("text should not parse")
	}
}

func TestIsJapaneseCode(t *testing.T) {
	for _, s := range []string{"1326", "1693.T", "0331418A"} {
		if !isJapaneseCode(s) {
			t.Errorf("isJapaneseCode(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"PLTR", "", "USDJPY=X"} {
		if isJapaneseCode(s) {
			t.Errorf("isJapaneseCode(%q) = true, want false", s)
		}
	}
}
