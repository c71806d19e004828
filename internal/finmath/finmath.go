// Package finmath holds the fixed-point conventions shared by the valuation
// packages: prices and quantities carry 8 fractional digits, percentages 4.
package finmath

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	// PriceScale is the number of fractional digits kept for prices, averages and ratios.
	PriceScale int32 = 8
	// PercentScale is the number of fractional digits kept for percentages.
	PercentScale int32 = 4
)

// Hundred is the ratio-to-percent multiplier.
var Hundred = decimal.NewFromInt(100)

// Ratio returns part/whole rounded half-up to PriceScale digits, or zero when
// whole is zero.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(whole, PriceScale)
}

// Percent returns part/whole × 100 with PercentScale fractional digits, or
// zero when whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.DivRound(whole, PercentScale+2).Mul(Hundred)
}

// PercentOf returns value × pct / 100.
func PercentOf(value, pct decimal.Decimal) decimal.Decimal {
	return value.Mul(pct).Div(Hundred)
}

// IsCurrency reports whether code is an ISO 4217 currency known to go-money.
func IsCurrency(code string) bool {
	return len(code) == 3 && money.GetCurrency(code) != nil
}

// CurrencyFraction returns the number of minor-unit digits for a currency,
// defaulting to 2 for unknown codes.
func CurrencyFraction(code string) int32 {
	if c := money.GetCurrency(code); c != nil {
		return int32(c.Fraction)
	}
	return 2
}

// RoundToCurrency rounds an amount to the minor units of the given currency.
func RoundToCurrency(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(CurrencyFraction(code))
}

// FormatMoney renders an amount using the currency's symbol and separators,
// e.g. "$1,234.50".
func FormatMoney(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	minor := amount.Shift(CurrencyFraction(code)).Round(0).IntPart()
	return money.New(minor, code).Display()
}
