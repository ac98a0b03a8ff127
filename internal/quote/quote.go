// Package quote fetches live equity prices from multiple upstream sources.
// It defines a common Source interface and implements concrete sources for
// Yahoo Finance, NSE India, and Screener.in, plus a Chain that tries them
// in order until one succeeds.
package quote

import (
	"context"
	"fmt"

	"github.com/seenimoa/niftyfolio/pkg/models"
)

// Source defines the interface a price source must implement.
type Source interface {
	// Name returns the human-readable name of this source.
	Name() string

	// LookupPrice returns a near-real-time quote for the given NSE symbol.
	LookupPrice(ctx context.Context, symbol string) (*models.Quote, error)
}

// --- Sentinel errors ---

// ErrSymbolNotFound is returned when a symbol cannot be resolved by a source.
var ErrSymbolNotFound = fmt.Errorf("symbol not found")

// ErrRateLimited is returned when a source rate-limits the request.
var ErrRateLimited = fmt.Errorf("rate limited by price source")

// coalesce returns the first non-empty string.
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
