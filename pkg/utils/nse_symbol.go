package utils

import "strings"

// NormalizeSymbol normalizes a user-input or CSV symbol to the canonical NSE
// format: uppercase, trimmed, no Yahoo suffix. NSE symbols may contain
// letters, digits, '-' and '&' (e.g., "M&M", "BAJAJ-AUTO").
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	symbol = strings.TrimPrefix(symbol, "$")
	symbol = strings.TrimSuffix(symbol, ".NS")
	symbol = strings.TrimSuffix(symbol, ".BO")
	return symbol
}

// ToYahooSymbol converts an NSE symbol to Yahoo Finance format by appending
// the .NS suffix.
func ToYahooSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return symbol
	}
	return symbol + ".NS"
}

// FromYahooSymbol strips the .NS or .BO suffix to get the plain NSE symbol.
func FromYahooSymbol(yahooSymbol string) string {
	yahooSymbol = strings.TrimSuffix(yahooSymbol, ".NS")
	yahooSymbol = strings.TrimSuffix(yahooSymbol, ".BO")
	return yahooSymbol
}

// ValidSymbol reports whether the symbol looks like a plausible NSE trading
// symbol: 1-20 chars of A-Z, 0-9, '-' or '&'.
func ValidSymbol(symbol string) bool {
	if len(symbol) < 1 || len(symbol) > 20 {
		return false
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '&':
		default:
			return false
		}
	}
	return true
}

// ValidISIN reports whether the string matches the ISIN layout:
// 2 letters, 9 alphanumerics, 1 check digit.
func ValidISIN(isin string) bool {
	if len(isin) != 12 {
		return false
	}
	for i, r := range isin {
		switch {
		case i < 2:
			if r < 'A' || r > 'Z' {
				return false
			}
		case i == 11:
			if r < '0' || r > '9' {
				return false
			}
		default:
			if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}
