package models

import "time"

// Transaction sides
const (
	SideBuy   = "BUY"
	SideSell  = "SELL"
	SideOther = "OTHER"
)

// Transaction is a single buy/sell/dividend event imported from a brokerage
// statement. AmountJPY is the signed settlement amount in home currency.
type Transaction struct {
	ID          string    `json:"id,omitempty"`
	PortfolioID string    `json:"portfolio_id"`
	Date        time.Time `json:"date"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Side        string    `json:"side"`
	Quantity    float64   `json:"quantity"`
	AmountJPY   float64   `json:"amount_jpy"`
	Market      string    `json:"market"`                // "US", "JP", "INVST"
	AssetClass  string    `json:"asset_class,omitempty"` // "Equity", "Bond", "REIT", "Commodity"
}

// Holding is the current position for a symbol within a portfolio. The
// resolver only reads Market and Currency to decide whether FX composition
// applies.
type Holding struct {
	ID          string    `json:"id,omitempty"`
	PortfolioID string    `json:"portfolio_id"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Quantity    float64   `json:"quantity"`
	Market      string    `json:"market"`
	Currency    string    `json:"currency"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsForeign reports whether the holding trades outside the home currency.
func (h *Holding) IsForeign(homeCurrency string) bool {
	return h.Currency != "" && h.Currency != homeCurrency
}
