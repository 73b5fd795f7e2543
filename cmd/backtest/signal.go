package main

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/internal/backtest"
	"github.com/rxtech-lab/tide-trading/internal/types"
	"github.com/rxtech-lab/tide-trading/internal/utils"
)

// smaCrossoverSignal builds the example strategy: go long when the fast
// simple moving average crosses above the slow one, and emit a sell when it
// crosses back below so an open long exits at close. Protective levels are
// set as fixed fractions of the entry close.
func smaCrossoverSignal(config BacktestConfig) backtest.SignalFunc {
	one := decimal.NewFromInt(1)

	return func(candles []types.Candle, i int) optional.Option[types.OrderRequest] {
		if i < config.SlowPeriod {
			return optional.None[types.OrderRequest]()
		}

		fastNow := sma(candles, i, config.FastPeriod)
		slowNow := sma(candles, i, config.SlowPeriod)
		fastPrev := sma(candles, i-1, config.FastPeriod)
		slowPrev := sma(candles, i-1, config.SlowPeriod)

		crossedUp := fastPrev.LessThanOrEqual(slowPrev) && fastNow.GreaterThan(slowNow)
		crossedDown := fastPrev.GreaterThanOrEqual(slowPrev) && fastNow.LessThan(slowNow)

		close := candles[i].Close

		quantity := config.Quantity
		if quantity.IsZero() {
			quantity = utils.QuantityByPercent(config.StartingEquity, close, config.PositionPct, config.FeeRoundTrip)
		}

		switch {
		case crossedUp:
			return optional.Some(types.OrderRequest{
				Side:     types.PurchaseTypeBuy,
				Type:     types.OrderTypeMarket,
				Quantity: quantity,
				Stop:     optional.Some(close.Mul(one.Sub(config.StopPct))),
				Target:   optional.Some(close.Mul(one.Add(config.TargetPct))),
			})
		case crossedDown:
			return optional.Some(types.OrderRequest{
				Side:     types.PurchaseTypeSell,
				Type:     types.OrderTypeMarket,
				Quantity: quantity,
			})
		default:
			return optional.None[types.OrderRequest]()
		}
	}
}

// sma averages the closes of the window ending at index i.
func sma(candles []types.Candle, i, period int) decimal.Decimal {
	sum := decimal.Zero

	for j := i - period + 1; j <= i; j++ {
		sum = sum.Add(candles[j].Close)
	}

	return sum.Div(decimal.NewFromInt(int64(period)))
}
