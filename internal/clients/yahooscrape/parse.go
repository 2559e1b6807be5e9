package yahooscrape

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hirokada/shisan/internal/models"
)

// Japanese date format: 2024年12月30日
var jpDateRe = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)

// scrapedRow is one parsed table row before range filtering.
type scrapedRow struct {
	date  time.Time
	price float64
	nav   *float64
	diff  *float64
	aum   *float64
}

// parseHistoryTable extracts price rows from a history page. Yahoo has
// shipped several table layouts; each strategy is tried in order and the
// first one that yields rows wins.
func parseHistoryTable(doc *html.Node) ([]scrapedRow, string) {
	strategies := []struct {
		name   string
		tables func(*html.Node) []*html.Node
	}{
		{"class-hint", tablesByClassHint},
		{"data-test", tablesByDataTest},
		{"generic", allTables},
	}

	for _, s := range strategies {
		for _, table := range s.tables(doc) {
			rows := extractRows(table)
			if len(rows) > 0 {
				return rows, s.name
			}
		}
	}
	return nil, ""
}

// tablesByClassHint finds tables carrying one of the known Yahoo table classes.
func tablesByClassHint(doc *html.Node) []*html.Node {
	hints := []string{"padst-basic-table", "historical-data-table"}
	var out []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "table" {
			return
		}
		class := attr(n, "class")
		for _, h := range hints {
			if strings.Contains(class, h) {
				out = append(out, n)
				return
			}
		}
	})
	return out
}

// tablesByDataTest finds tables nested under a data-test="historical-prices"
// container (global site layout).
func tablesByDataTest(doc *html.Node) []*html.Node {
	var out []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || attr(n, "data-test") != "historical-prices" {
			return
		}
		walk(n, func(m *html.Node) {
			if m.Type == html.ElementNode && m.Data == "table" {
				out = append(out, m)
			}
		})
	})
	return out
}

func allTables(doc *html.Node) []*html.Node {
	var out []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			out = append(out, n)
		}
	})
	return out
}

// extractRows pulls dated price rows out of a table node. Rows whose first
// cell does not parse as a date are skipped (headers, spacers, ads).
func extractRows(table *html.Node) []scrapedRow {
	var rows []scrapedRow
	walk(table, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "tr" {
			return
		}
		cells := cellTexts(n)
		if len(cells) < 2 {
			return
		}
		date, ok := parseRowDate(cells[0])
		if !ok {
			return
		}

		numbers := make([]float64, 0, len(cells)-1)
		for _, c := range cells[1:] {
			if v, ok := parseNumber(c); ok {
				numbers = append(numbers, v)
			}
		}
		if len(numbers) == 0 {
			return
		}

		row := scrapedRow{date: date}
		if len(numbers) >= 5 {
			// OHLC layout: 始値 高値 安値 終値 [出来高 調整後終値], close is the 4th
			row.price = numbers[3]
		} else {
			// Fund layout: 基準価額 [前日比 純資産残高]
			row.price = numbers[0]
			nav := numbers[0]
			row.nav = &nav
			if len(numbers) > 1 {
				diff := numbers[1]
				row.diff = &diff
			}
			if len(numbers) > 2 {
				aum := numbers[2]
				row.aum = &aum
			}
		}
		rows = append(rows, row)
	})
	return rows
}

// findNextURL locates the "next page" control. Strategies in order: an
// anchor with rel="next", an anchor or button labeled 次へ/Next, and an
// aria-label match. Returns the href, or "" when no control exists.
func findNextURL(doc *html.Node) string {
	var relNext, labeled string
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if n.Data == "a" {
			href := attr(n, "href")
			if href == "" {
				return
			}
			if attr(n, "rel") == "next" && relNext == "" {
				relNext = href
				return
			}
			label := strings.TrimSpace(nodeText(n))
			aria := attr(n, "aria-label")
			if labeled == "" && (strings.Contains(label, "次へ") || label == "Next" || strings.Contains(aria, "次へ") || aria == "Next") {
				labeled = href
			}
		}
	})
	if relNext != "" {
		return relNext
	}
	return labeled
}

// pageSnapshot summarizes the visible table content so pagination can detect
// a "next" control that no longer advances. Two pages with identical
// first/last rows and row count are the same page.
func pageSnapshot(rows []scrapedRow) string {
	if len(rows) == 0 {
		return ""
	}
	first, last := rows[0], rows[len(rows)-1]
	return first.date.Format("2006-01-02") + "|" +
		strconv.FormatFloat(first.price, 'f', -1, 64) + "|" +
		last.date.Format("2006-01-02") + "|" +
		strconv.FormatFloat(last.price, 'f', -1, 64) + "|" +
		strconv.Itoa(len(rows))
}

func parseRowDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if m := jpDateRe.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range []string{"Jan 2, 2006", "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Day(t), true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	t := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if t == "" || t == "-" || t == "—" {
		return 0, false
	}
	// Strip trailing annotations like 円
	t = strings.TrimRight(t, "円株口%")
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// --- html helpers ---

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	walk(n, func(m *html.Node) {
		if m.Type == html.TextNode {
			b.WriteString(m.Data)
		}
	})
	return b.String()
}

func cellTexts(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, strings.TrimSpace(nodeText(c)))
		}
	}
	return cells
}
