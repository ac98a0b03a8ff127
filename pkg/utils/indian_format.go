// Package utils provides common utility functions for niftyfolio.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatINR formats an amount in Indian Rupee format (₹12,34,567.89).
// Uses the Indian numbering system: last 3 digits, then groups of 2.
func FormatINR(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	// Round once, then split, so the integer part carries the rounded
	// fraction (999.999 must print as ₹1,000.00, never ₹999.00).
	intPart, decimals := splitRounded(amount)
	formatted := formatIndianNumber(intPart) + decimals

	if negative {
		return "-₹" + formatted
	}
	return "₹" + formatted
}

// FormatINRCompact formats an amount in compact Indian notation.
// e.g., 1927345 → "₹19.27 L", 192734500000 → "₹19,273.45 Cr"
func FormatINRCompact(amount float64) string {
	negative := amount < 0
	amount = math.Abs(amount)

	prefix := "₹"
	if negative {
		prefix = "-₹"
	}

	switch {
	case amount >= 1e7:
		return fmt.Sprintf("%s%s Cr", prefix, formatWithDecimals(amount/1e7))
	case amount >= 1e5:
		return fmt.Sprintf("%s%s L", prefix, formatWithDecimals(amount/1e5))
	case amount >= 1e3:
		return fmt.Sprintf("%s%s K", prefix, formatWithDecimals(amount/1e3))
	default:
		return fmt.Sprintf("%s%.2f", prefix, amount)
	}
}

// FormatPct formats a percentage with 2 decimal places, e.g., 97.38 → "97.38%".
func FormatPct(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatPct4 formats a percentage with 4 decimal places, the precision used
// for per-security allocation weights (1/98 ≈ 1.0204%).
func FormatPct4(pct float64) string {
	return fmt.Sprintf("%.4f%%", pct)
}

// FormatShares formats a share count with Indian digit grouping.
func FormatShares(shares int64) string {
	if shares < 0 {
		return "-" + formatIndianNumber(-shares)
	}
	return formatIndianNumber(shares)
}

// formatIndianNumber formats an integer with Indian grouping (last 3, then 2s).
func formatIndianNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	s := fmt.Sprintf("%d", n)
	length := len(s)

	// Take the last 3 digits
	result := s[length-3:]
	remaining := s[:length-3]

	// Group remaining digits in pairs from right
	for len(remaining) > 0 {
		if len(remaining) > 2 {
			result = remaining[len(remaining)-2:] + "," + result
			remaining = remaining[:len(remaining)-2]
		} else {
			result = remaining + "," + result
			remaining = ""
		}
	}

	return result
}

// formatWithDecimals formats a number with up to 2 decimal places,
// removing trailing zeros, with Indian grouping on the integer part.
func formatWithDecimals(n float64) string {
	intPart, decimals := splitRounded(n)
	decimals = strings.TrimRight(decimals, "0")
	decimals = strings.TrimSuffix(decimals, ".")
	return formatIndianNumber(intPart) + decimals
}

// splitRounded rounds n to 2 decimal places and returns the integer part
// and the decimals (including the dot) of the same rounded value.
func splitRounded(n float64) (int64, string) {
	s := fmt.Sprintf("%.2f", n)
	dot := strings.IndexByte(s, '.')
	intPart, _ := strconv.ParseInt(s[:dot], 10, 64)
	return intPart, s[dot:]
}
