// Package alias maps user-facing symbols and fund names to the canonical
// identifier used by the price adapters and cache.
package alias

import (
	"strings"

	"github.com/hirokada/shisan/internal/common"
)

// symbolAliases maps known symbol variants to their canonical fetch symbol.
// Exchange-suffixed forms (".T") resolve to the bare code.
var symbolAliases = map[string]string{
	// eMAXIS Slim funds
	"0331418A": "0331418A", // 全世界株式(オルカン)
	"03311187": "03311187", // 米国株式(S&P500)
	"0331A172": "0331A172", // 先進国債券インデックス(除く日本)
	"0331219A": "0331219A", // 先進国リートインデックス(除く日本)

	// Other mutual funds
	"25314203": "25314203", // NZAM・ベータ 米国REIT
	"4731624C": "4731624C", // たわらノーロード インド株式Nifty50
	"29314233": "29314233", // ニッセイSOX指数インデックスファンド
	"03311112": "03311112", // 三菱UFJ 純金ファンド(ファインゴールド)
	"04311181": "04311181", // iFreeNEXT FANG+インデックス
	"01314133": "01314133", // 野村Jリートファンド

	// Japanese ETFs and stocks (numeric tickers)
	"1326":   "1326", // SPDRゴールド・シェア
	"1542":   "1542", // 純銀上場信託
	"1674":   "1674", // WT白金上場投信
	"1693":   "1693", // WT銅上場投信
	"1693.T": "1693",
	"2516":   "2516", // 東証グロース250ETF
	"4755":   "4755", // 楽天グループ
	"4755.T": "4755",
}

// nameAlias is a fund name fragment mapped to its canonical fetch symbol.
// Fragments are matched as substrings of the normalized display name, in
// declaration order, and only consulted when the symbol itself did not match.
type nameAlias struct {
	fragment  string
	canonical string
}

var nameAliases = []nameAlias{
	// eMAXIS Slim 全世界株式 (オルカン)
	{"eMAXIS Slim 全世界株式(オール・カントリー)", "0331418A"},
	{"オルカン", "0331418A"},

	// eMAXIS Slim 米国株式 (S&P500)
	{"eMAXIS Slim 米国株式(S&P500)", "03311187"},
	{"米国株式(S&P500)", "03311187"},

	// eMAXIS Slim 先進国債券インデックス(除く日本)
	{"先進国債券インデックス(除く日本)", "0331A172"},

	// eMAXIS Slim 先進国リートインデックス(除く日本)
	{"先進国リートインデックス(除く日本)", "0331219A"},

	// NZAM・ベータ 米国REIT
	{"NZAM・ベータ 米国REIT", "25314203"},
	{"NZAMベータ 米国REIT", "25314203"},

	// たわらノーロード インド株式Nifty50
	{"インド株式Nifty50", "4731624C"},

	// ニッセイSOX指数インデックスファンド
	{"SOX指数インデックスファンド", "29314233"},

	// 三菱UFJ 純金ファンド(ファインゴールド)
	{"純金ファンド(ファインゴールド)", "03311112"},
	{"ファインゴールド", "03311112"},

	// iFreeNEXT FANG+インデックス
	{"FANG+インデックス", "04311181"},

	// 野村Jリートファンド
	{"Jリートファンド", "01314133"},

	// Japanese ETFs
	{"SPDRゴールド・シェア", "1326"},
	{"純銀上場信託", "1542"},
	{"WT白金上場投信", "1674"},
	{"WisdomTree 白金", "1674"},
	{"WT銅上場投信", "1693"},
	{"WisdomTree 銅", "1693"},
	{"東証グロース250ETF", "2516"},
	{"楽天グループ", "4755"},
}

// Resolve maps a symbol and display name to the canonical fetch symbol.
// Pure and deterministic: symbol match wins, name-substring match is the
// fallback, and an unresolved input is returned unchanged, never an error.
func Resolve(symbol, name string) (string, string) {
	normalized := common.StripSpaces(symbol)

	if canonical, ok := symbolAliases[normalized]; ok {
		return canonical, name
	}

	// Exchange-suffixed variant of a known code
	if strings.HasSuffix(normalized, ".T") {
		if canonical, ok := symbolAliases[strings.TrimSuffix(normalized, ".T")]; ok {
			return canonical, name
		}
	}

	// Full/half-width variants of names must match, so compare normalized
	// forms on both sides.
	nameNorm := common.NormalizeText(name)
	if nameNorm != "" {
		for _, a := range nameAliases {
			if strings.Contains(nameNorm, common.NormalizeText(a.fragment)) {
				return a.canonical, name
			}
		}
	}

	return symbol, name
}
