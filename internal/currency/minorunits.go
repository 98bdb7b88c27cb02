// Package currency converts human-readable decimal amounts into the integer
// minor-unit representation payment providers expect.
package currency

import (
	"errors"
	"math"
	"strings"
)

// ErrInvalidAmount is returned for non-finite or non-positive amounts.
var ErrInvalidAmount = errors.New("currency: amount must be finite and positive")

// ErrInvalidCurrency is returned for codes that are not three ASCII letters.
var ErrInvalidCurrency = errors.New("currency: code must be a 3-letter ISO 4217 code")

// zeroDecimal holds the ISO 4217 currencies that have no minor unit. A major
// amount in these currencies is already the smallest chargeable denomination.
var zeroDecimal = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {},
	"krw": {}, "mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {},
	"vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// IsZeroDecimal reports whether the currency has no minor unit.
func IsZeroDecimal(code string) bool {
	_, ok := zeroDecimal[normalise(code)]
	return ok
}

// MinorUnits converts a major-unit decimal amount into minor units for the
// given currency. Zero-decimal currencies round the major amount directly;
// all others multiply by 100 first. Rounding is math.Round, half away from
// zero, which for the positive amounts accepted here behaves as half-up.
func MinorUnits(amount float64, code string) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	c := normalise(code)
	if len(c) != 3 || !alphabetic(c) {
		return 0, ErrInvalidCurrency
	}
	if _, ok := zeroDecimal[c]; ok {
		return int64(math.Round(amount)), nil
	}
	return int64(math.Round(amount * 100)), nil
}

func normalise(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func alphabetic(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
