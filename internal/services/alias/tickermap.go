package alias

import "strings"

// yahooTickers maps brokerage symbols to Yahoo Finance tickers for direct
// price lookup. Tokyo-listed codes get the .T exchange suffix.
var yahooTickers = map[string]string{
	// US stocks - direct mapping
	"PLTR": "PLTR",
	"PLUG": "PLUG",
	"MU":   "MU",
	"MGA":  "MGA",
	"EGHT": "EGHT",
	"QUBT": "QUBT",
	"IAU":  "IAU",
	"TSM":  "TSM",
	"HYLN": "HYLN",
	"FCEL": "FCEL",
	"IDEX": "IDEX",
	"CBAT": "CBAT",
	"CIFR": "CIFR",

	// US ETFs
	"QQQ":  "QQQ",
	"DIA":  "DIA",
	"TQQQ": "TQQQ",
	"IYR":  "IYR",
	"EPHE": "EPHE",
	"GLD":  "GLD",

	// Japanese ETFs and stocks - Tokyo Stock Exchange
	"1326": "1326.T", // SPDRゴールド・シェア
	"1309": "1309.T", // NEXT FUNDS ChinaAMC CSI300
	"1615": "1615.T", // NEXT FUNDS 銀行
	"1678": "1678.T", // NEXT FUNDS インド株式
	"1542": "1542.T", // 純銀上場信託
	"1543": "1543.T", // 純パラジウム上場信託
	"1674": "1674.T", // WT白金上場投信
	"1693": "1693.T", // WT銅上場投信
	"1628": "1628.T", // iShares 運輸・物流
	"2516": "2516.T", // 東証グロース250ETF
	"4755": "4755.T", // 楽天グループ
	"4824": "4824.T", // メディアシーク
}

// YahooTicker returns the Yahoo Finance ticker for a symbol, or the empty
// string when there is no direct mapping.
func YahooTicker(symbol string) string {
	return yahooTickers[symbol]
}

// ProviderTicker returns the ticker adapters should fetch with: the mapped
// Yahoo ticker when one exists, otherwise the canonical symbol itself.
func ProviderTicker(symbol string) string {
	if t := yahooTickers[symbol]; t != "" {
		return t
	}
	return symbol
}

// IsUSSecurity reports whether a symbol looks like a US listing (letters
// only, upper case).
func IsUSSecurity(symbol string) bool {
	if symbol == "" {
		return false
	}
	for _, r := range symbol {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// IsJapaneseSecurity reports whether a symbol looks like a JP listing
// (numeric code, optionally with a .T suffix) or a JP fund code (digits
// followed by a single letter, e.g. "0331418A").
func IsJapaneseSecurity(symbol string) bool {
	code := strings.TrimSuffix(symbol, ".T")
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
