package models

import "math"

// BaseCurrency is the canonical storage currency for all monetary values.
const BaseCurrency = "KES"

// Amount is a monetary value with its native currency and the projection
// into the base currency. BaseAmount = Amount * rate(Currency -> KES).
type Amount struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	BaseAmount   float64 `json:"base_amount"`
	BaseCurrency string  `json:"base_currency"`
	Confidence   float64 `json:"confidence"`
}

// Round2 rounds to 2 fractional digits, the storage precision for amounts.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to 3 fractional digits, the storage precision for ratios.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
