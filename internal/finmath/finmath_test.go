package finmath

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPercent(t *testing.T) {
	t.Run("zero_whole_is_zero", func(t *testing.T) {
		assert.True(t, Percent(d("10"), decimal.Zero).IsZero())
	})
	t.Run("keeps_four_fraction_digits", func(t *testing.T) {
		assert.True(t, Percent(d("1"), d("3")).Equal(d("33.3333")), Percent(d("1"), d("3")).String())
	})
	t.Run("negative_values", func(t *testing.T) {
		assert.True(t, Percent(d("-50"), d("1100")).Equal(d("-4.5455")))
	})
}

func TestRatio(t *testing.T) {
	assert.True(t, Ratio(d("2200"), d("20")).Equal(d("110")))
	assert.True(t, Ratio(d("1"), d("3")).Equal(d("0.33333333")))
	assert.True(t, Ratio(d("2"), d("3")).Equal(d("0.66666667")))
	assert.True(t, Ratio(d("1"), decimal.Zero).IsZero())
}

func TestCurrencyHelpers(t *testing.T) {
	assert.True(t, IsCurrency("USD"))
	assert.True(t, IsCurrency("eur"))
	assert.False(t, IsCurrency("XXXX"))
	assert.False(t, IsCurrency("ZZZ"))

	assert.Equal(t, int32(0), CurrencyFraction("JPY"))
	assert.Equal(t, int32(2), CurrencyFraction("USD"))

	assert.True(t, RoundToCurrency(d("10.005"), "USD").Equal(d("10.01")))
	assert.True(t, RoundToCurrency(d("10.5"), "JPY").Equal(d("11")))

	assert.Equal(t, "$1,234.50", FormatMoney(d("1234.5"), "USD"))
}
