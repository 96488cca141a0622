package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTaxRoundsToCents(t *testing.T) {
	subtotal := decimal.NewFromInt(95)
	tax := Tax(subtotal, DefaultTaxRate)
	require.Equal(t, "7.84", tax.StringFixed(2), "95 * 0.0825 = 7.8375 rounds to 7.84")
}

func TestFormat(t *testing.T) {
	require.Equal(t, "$102.84", Format("$", decimal.RequireFromString("102.84")))
	require.Equal(t, "€50.00", Format("€", decimal.NewFromInt(50)))
}

func TestParseRateFallsBack(t *testing.T) {
	require.True(t, ParseRate("").Equal(DefaultTaxRate))
	require.True(t, ParseRate("bogus").Equal(DefaultTaxRate))
	require.True(t, ParseRate("-1").Equal(DefaultTaxRate))
	require.Equal(t, "0.07", ParseRate("0.07").String())
}
