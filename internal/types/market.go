package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Candle is a single OHLCV bucket. Time is a UTC instant and all quantities
// are exact decimals so fee and drawdown accounting never drifts.
type Candle struct {
	Time   time.Time       `yaml:"time" json:"time"`
	Open   decimal.Decimal `yaml:"open" json:"open"`
	High   decimal.Decimal `yaml:"high" json:"high"`
	Low    decimal.Decimal `yaml:"low" json:"low"`
	Close  decimal.Decimal `yaml:"close" json:"close"`
	Volume decimal.Decimal `yaml:"volume" json:"volume"`
}

// Ticker is a transient best bid/ask snapshot. It is never persisted.
type Ticker struct {
	Bid  decimal.Decimal `json:"bid"`
	Ask  decimal.Decimal `json:"ask"`
	Last decimal.Decimal `json:"last"`
	Time time.Time       `json:"time"`
}

// FeeSchedule holds fractional maker/taker rates (0.004 means 0.40%).
type FeeSchedule struct {
	MakerRate decimal.Decimal `json:"maker_rate"`
	TakerRate decimal.Decimal `json:"taker_rate"`
}

// SortCandles returns the candles sorted ascending by time with duplicate
// timestamps collapsed, last write wins. Exchange clients call this after a
// paginated fetch so overlapping chunks never produce out-of-order or
// repeated bars.
func SortCandles(candles []Candle) []Candle {
	byTime := make(map[int64]Candle, len(candles))
	for _, c := range candles {
		byTime[c.Time.Unix()] = c
	}

	result := make([]Candle, 0, len(byTime))
	for _, c := range byTime {
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Time.Before(result[j].Time)
	})

	return result
}
