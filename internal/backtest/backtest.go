// Package backtest replays historical candles through a caller-supplied
// signal function. The engine is a pure function of its inputs: no network,
// no clock, no shared state between runs.
package backtest

import (
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/internal/types"
	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

// warmupBars is the fixed warm-up window. Candles before this index are
// never acted on, so indicator-driven signals always have history to read.
const warmupBars = 50

// SignalFunc is the injected strategy decision function. It is consulted
// once per bar and may return an order request to open or reverse.
type SignalFunc func(candles []types.Candle, index int) optional.Option[types.OrderRequest]

// Result is the outcome of one backtest run.
type Result struct {
	Trades      int
	PnL         decimal.Decimal
	WinRate     decimal.Decimal
	MaxDrawdown decimal.Decimal
}

// position is the single open position. Quantity is signed; zero means flat.
type position struct {
	qty      decimal.Decimal
	avgPrice decimal.Decimal
	stop     optional.Option[decimal.Decimal]
	target   optional.Option[decimal.Decimal]
}

func (p *position) open() bool {
	return !p.qty.IsZero()
}

// Run replays candles through signal, holding at most one position at a
// time. Entries fill at bar close; protective exits fill at the exact stop
// or target level (gap-through is ignored). Each leg bears half the
// round-trip fee rate on its own notional. A position still open after the
// final bar is force-closed at that bar's close.
func Run(candles []types.Candle, signal SignalFunc, feeRoundTrip, startingEquity decimal.Decimal) (Result, error) {
	if signal == nil {
		return Result{}, errors.New(errors.ErrCodeBacktestBadInput, "signal function is nil")
	}

	if feeRoundTrip.Sign() < 0 {
		return Result{}, errors.New(errors.ErrCodeBacktestBadInput, "fee rate must not be negative")
	}

	for i := 1; i < len(candles); i++ {
		if !candles[i-1].Time.Before(candles[i].Time) {
			return Result{}, errors.New(errors.ErrCodeBacktestBadInput, "candles must be strictly ascending by time")
		}
	}

	var (
		pos         position
		trades      int
		wins        int
		equity      = startingEquity
		peak        = startingEquity
		maxDrawdown = decimal.Zero
		halfFee     = feeRoundTrip.Div(decimal.NewFromInt(2))
	)

	closePosition := func(exitPrice decimal.Decimal) {
		pnl := exitPrice.Sub(pos.avgPrice).Mul(pos.qty)
		equity = equity.Add(pnl)
		equity = equity.Sub(exitPrice.Mul(pos.qty.Abs()).Mul(halfFee))

		if pnl.Sign() > 0 {
			wins++
		}

		pos = position{}
	}

	for i := warmupBars; i < len(candles); i++ {
		bar := candles[i]
		req := signal(candles, i)

		if !pos.open() {
			if req.IsSome() {
				order := req.Unwrap()

				qty := order.Quantity
				if order.Side == types.PurchaseTypeSell {
					qty = qty.Neg()
				}

				pos = position{
					qty:      qty,
					avgPrice: bar.Close,
					stop:     order.Stop,
					target:   order.Target,
				}

				trades++
				equity = equity.Sub(bar.Close.Mul(qty.Abs()).Mul(halfFee))
			}
		} else {
			long := pos.qty.Sign() > 0

			switch {
			case stopTouched(pos, bar, long):
				closePosition(pos.stop.Unwrap())
			case targetTouched(pos, bar, long):
				closePosition(pos.target.Unwrap())
			case opposingSignal(req, long):
				closePosition(bar.Close)
			}
		}

		if equity.GreaterThan(peak) {
			peak = equity
		}

		if peak.Sign() > 0 {
			drawdown := peak.Sub(equity).Div(peak)
			if drawdown.GreaterThan(maxDrawdown) {
				maxDrawdown = drawdown
			}
		}
	}

	if pos.open() && len(candles) > 0 {
		closePosition(candles[len(candles)-1].Close)

		if equity.GreaterThan(peak) {
			peak = equity
		}

		if peak.Sign() > 0 {
			drawdown := peak.Sub(equity).Div(peak)
			if drawdown.GreaterThan(maxDrawdown) {
				maxDrawdown = drawdown
			}
		}
	}

	winRate := decimal.Zero
	if trades > 0 {
		winRate = decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(trades)))
	}

	return Result{
		Trades:      trades,
		PnL:         equity.Sub(startingEquity),
		WinRate:     winRate,
		MaxDrawdown: maxDrawdown,
	}, nil
}

// stopTouched reports whether the bar traded through the protective stop.
// For a long the low is tested, for a short the high.
func stopTouched(pos position, bar types.Candle, long bool) bool {
	if pos.stop.IsNone() {
		return false
	}

	stop := pos.stop.Unwrap()

	if long {
		return bar.Low.LessThanOrEqual(stop)
	}

	return bar.High.GreaterThanOrEqual(stop)
}

// targetTouched is the mirror check against the protective target.
func targetTouched(pos position, bar types.Candle, long bool) bool {
	if pos.target.IsNone() {
		return false
	}

	target := pos.target.Unwrap()

	if long {
		return bar.High.GreaterThanOrEqual(target)
	}

	return bar.Low.LessThanOrEqual(target)
}

// opposingSignal reports whether the bar's signal opposes the open position.
func opposingSignal(req optional.Option[types.OrderRequest], long bool) bool {
	if req.IsNone() {
		return false
	}

	side := req.Unwrap().Side

	return (long && side == types.PurchaseTypeSell) || (!long && side == types.PurchaseTypeBuy)
}
