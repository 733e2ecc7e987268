package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseHours accepts any finite floating point value, negatives and zero
// included.
func ParseHours(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidHours
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, ErrInvalidHours
	}
	return h, nil
}

// FormatHours renders hours with at most two decimals and no trailing zeros,
// e.g. 7.5 -> "7.5", 8 -> "8".
func FormatHours(h float64) string {
	return decimal.NewFromFloat(h).Round(2).String()
}
