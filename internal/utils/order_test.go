package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMaxQuantityAccountsForFee(t *testing.T) {
	// 10000 at price 100 with a 1% fee: 10000 / 101 = 99.0099...
	qty := MaxQuantity(decimal.NewFromInt(10000), decimal.NewFromInt(100), decimal.NewFromFloat(0.01))
	assert.True(t, qty.Equal(decimal.RequireFromString("99.009900")), "qty %s", qty)

	// The sized order must actually be affordable.
	total := qty.Mul(decimal.NewFromInt(100)).Mul(decimal.NewFromFloat(1.01))
	assert.True(t, total.LessThanOrEqual(decimal.NewFromInt(10000)))
}

func TestMaxQuantityZeroOnBadInputs(t *testing.T) {
	assert.True(t, MaxQuantity(decimal.Zero, decimal.NewFromInt(100), decimal.Zero).IsZero())
	assert.True(t, MaxQuantity(decimal.NewFromInt(100), decimal.Zero, decimal.Zero).IsZero())
	assert.True(t, MaxQuantity(decimal.NewFromInt(-1), decimal.NewFromInt(100), decimal.Zero).IsZero())
}

func TestQuantityByPercent(t *testing.T) {
	half := QuantityByPercent(decimal.NewFromInt(10000), decimal.NewFromInt(100), decimal.NewFromFloat(0.5), decimal.Zero)
	assert.True(t, half.Equal(decimal.NewFromInt(50)), "qty %s", half)

	assert.True(t, QuantityByPercent(decimal.NewFromInt(10000), decimal.NewFromInt(100), decimal.Zero, decimal.Zero).IsZero())
}

func TestRoundToPrecisionTruncates(t *testing.T) {
	// truncation, not rounding: 0.1234567 -> 0.123456
	qty := RoundToPrecision(decimal.RequireFromString("0.1234567"), 6)
	assert.True(t, qty.Equal(decimal.RequireFromString("0.123456")), "qty %s", qty)
}
