package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func candleAt(ts time.Time, close float64) Candle {
	price := decimal.NewFromFloat(close)

	return Candle{
		Time:   ts,
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: decimal.NewFromInt(1),
	}
}

func (suite *MarketTestSuite) TestSortCandlesOrdersAscending() {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := []Candle{
		candleAt(base.Add(2*time.Minute), 103),
		candleAt(base, 101),
		candleAt(base.Add(time.Minute), 102),
	}

	sorted := SortCandles(candles)

	suite.Len(sorted, 3)
	suite.True(sorted[0].Time.Before(sorted[1].Time))
	suite.True(sorted[1].Time.Before(sorted[2].Time))
}

func (suite *MarketTestSuite) TestSortCandlesDeduplicatesLastWriteWins() {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := []Candle{
		candleAt(base, 100),
		candleAt(base.Add(time.Minute), 105),
		// Same timestamp as the first candle: the later value must win.
		candleAt(base, 200),
	}

	sorted := SortCandles(candles)

	suite.Len(sorted, 2)
	suite.True(sorted[0].Close.Equal(decimal.NewFromInt(200)))
}

func (suite *MarketTestSuite) TestSortCandlesEmpty() {
	suite.Empty(SortCandles(nil))
}
