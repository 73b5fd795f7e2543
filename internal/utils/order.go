// Package utils holds order-sizing arithmetic shared by tooling and
// strategies.
package utils

import "github.com/shopspring/decimal"

// sizePrecision is the decimal-place limit applied to computed quantities so
// sized orders survive venue precision rules.
const sizePrecision = 6

// MaxQuantity returns the largest quantity purchasable with balance at
// price once the fee on the notional is accounted for, truncated to six
// decimal places. Non-positive balance or price yields zero.
func MaxQuantity(balance, price, feeRate decimal.Decimal) decimal.Decimal {
	if balance.Sign() <= 0 || price.Sign() <= 0 {
		return decimal.Zero
	}

	cost := price.Mul(decimal.NewFromInt(1).Add(feeRate))

	return RoundToPrecision(balance.Div(cost), sizePrecision)
}

// QuantityByPercent sizes an order from a fraction of the balance.
func QuantityByPercent(balance, price, percent, feeRate decimal.Decimal) decimal.Decimal {
	if percent.Sign() <= 0 {
		return decimal.Zero
	}

	return MaxQuantity(balance.Mul(percent), price, feeRate)
}

// RoundToPrecision truncates quantity downward to the given decimal places,
// never rounding up past what the balance covers.
func RoundToPrecision(quantity decimal.Decimal, places int32) decimal.Decimal {
	return quantity.Truncate(places)
}
