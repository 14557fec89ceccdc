// Package core provides the domain value types of the carbon ledger.
//
// This file contains parsing and rounding helpers for activity quantities
// and emission factors entered as strings.
package core

import (
	"math"
	"strconv"
	"strings"
)

// Round4 rounds to 4 decimal places, the fixed precision of per-record
// emission calculation. Summary-level sums are never re-rounded.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// ParseQuantity converts a decimal string to a float64 quantity.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Zero is a valid quantity; negative values and malformed input return
// ErrInvalidQuantity. Explicit sign prefixes are rejected outright so a
// stray "-" never slips through as a huge positive value.
func ParseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidQuantity
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidQuantity
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidQuantity
	}
	return v, nil
}

// ParseFactor converts a decimal string to a positive emission factor.
func ParseFactor(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidFactor
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
		return 0, ErrInvalidFactor
	}
	return v, nil
}

// FormatKg formats a kgCO2e value for display with two decimals.
func FormatKg(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', 2, 64)
}
