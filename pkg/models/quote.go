package models

import "time"

// Quote is a normalized price snapshot returned by a quote source.
type Quote struct {
	Symbol    string    `json:"symbol"`     // NSE symbol, e.g., "RELIANCE"
	Name      string    `json:"name"`       // company name as reported by the source
	LastPrice float64   `json:"last_price"` // last traded price in INR
	PrevClose float64   `json:"prev_close"`
	Currency  string    `json:"currency"` // "INR" for NSE equities
	Source    string    `json:"source"`   // which source produced this quote
	Timestamp time.Time `json:"timestamp"`
}

// Ratios holds valuation metrics for a single security, used by the
// metrics report. Zero values mean the source did not report the field.
type Ratios struct {
	Symbol        string  `json:"symbol"`
	PE            float64 `json:"pe,omitempty"`
	PB            float64 `json:"pb,omitempty"`
	BookValue     float64 `json:"book_value,omitempty"`
	DividendYield float64 `json:"dividend_yield,omitempty"`
	ROCE          float64 `json:"roce,omitempty"`
	ROE           float64 `json:"roe,omitempty"`
	EPS           float64 `json:"eps,omitempty"`
	MarketCap     float64 `json:"market_cap,omitempty"` // in INR crores as reported
	CurrentPrice  float64 `json:"current_price,omitempty"`
}
