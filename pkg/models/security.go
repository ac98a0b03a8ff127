// Package models defines the core data structures used throughout niftyfolio.
package models

import (
	"fmt"
	"strings"
)

// Security represents a single Nifty 100 index constituent.
// A Security is either unresolved (no price) or resolved (price > 0);
// zero or negative prices are never stored.
type Security struct {
	Symbol       string  `json:"symbol"`        // NSE trading symbol, e.g., "RELIANCE"
	CompanyName  string  `json:"company_name"`  // e.g., "Reliance Industries Limited"
	ISIN         string  `json:"isin"`          // e.g., "INE002A01018"
	Industry     string  `json:"industry"`      // e.g., "Oil Gas & Consumable Fuels"
	Series       string  `json:"series"`        // NSE series, e.g., "EQ"
	CurrentPrice float64 `json:"current_price"` // last traded price in INR; 0 until resolved
	Resolved     bool    `json:"resolved"`      // true once a valid (>0) price was obtained
}

// NewSecurity creates a Security, validating the identity fields.
func NewSecurity(symbol, companyName, isin string) (Security, error) {
	symbol = strings.TrimSpace(symbol)
	companyName = strings.TrimSpace(companyName)
	if symbol == "" {
		return Security{}, fmt.Errorf("symbol cannot be empty")
	}
	if companyName == "" {
		return Security{}, fmt.Errorf("company name cannot be empty for %s", symbol)
	}
	return Security{
		Symbol:      symbol,
		CompanyName: companyName,
		ISIN:        strings.TrimSpace(isin),
	}, nil
}

// SetPrice records a resolved price. Non-positive prices are rejected and
// leave the security unresolved.
func (s *Security) SetPrice(price float64) error {
	if price <= 0 {
		return fmt.Errorf("invalid price %.2f for %s: must be > 0", price, s.Symbol)
	}
	s.CurrentPrice = price
	s.Resolved = true
	return nil
}

// PriceAvailable reports whether a valid current price is available.
func (s Security) PriceAvailable() bool {
	return s.Resolved && s.CurrentPrice > 0
}

func (s Security) String() string {
	return s.Symbol + " - " + s.CompanyName
}

// ExclusionEntry identifies a security to remove from the working set
// before weight computation. A security is excluded when its symbol matches
// (case-insensitive) or its ISIN matches (exact).
type ExclusionEntry struct {
	Symbol string `json:"symbol"`
	ISIN   string `json:"isin"`
}

// Matches reports whether the given security is covered by this entry.
func (e ExclusionEntry) Matches(s Security) bool {
	if e.Symbol != "" && strings.EqualFold(e.Symbol, s.Symbol) {
		return true
	}
	return e.ISIN != "" && e.ISIN == s.ISIN
}
