// Package money centralizes decimal arithmetic and display formatting for
// cost fields.
package money

import "github.com/shopspring/decimal"

// DefaultTaxRate applies when settings carry no rate (8.25%).
var DefaultTaxRate = decimal.RequireFromString("0.0825")

// Tax returns subtotal * rate rounded to cents.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(2)
}

// Format renders an amount with the business currency symbol, always with
// two decimal places.
func Format(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}

// ParseRate parses a stored tax rate, falling back to the default when the
// value is empty or malformed.
func ParseRate(raw string) decimal.Decimal {
	if raw == "" {
		return DefaultTaxRate
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() {
		return DefaultTaxRate
	}
	return rate
}
