package exchange

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tide-trading/internal/logger"
	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

const krakenTestSecret = "a3Jha2VuLXNlY3JldC0wMTIzNDU2Nzg5"

type KrakenTestSuite struct {
	suite.Suite
	sender *stubSender
	client *Kraken
}

func TestKrakenSuite(t *testing.T) {
	suite.Run(t, new(KrakenTestSuite))
}

func (suite *KrakenTestSuite) SetupTest() {
	suite.sender = &stubSender{}
	suite.client = NewKraken(suite.sender, logger.NewNopLogger())
}

func (suite *KrakenTestSuite) TestAliasRoundTrip() {
	for canonical, alias := range krakenPairAliases {
		suite.Equal(alias, suite.client.NormalizeProduct(canonical))
		suite.Equal(canonical, suite.client.DenormalizeProduct(alias))
	}
}

func (suite *KrakenTestSuite) TestNormalizeWithoutAliasConcatenates() {
	suite.Equal("SOLUSD", suite.client.NormalizeProduct("SOL/USD"))
}

func (suite *KrakenTestSuite) TestDenormalizePassesUnknownThrough() {
	suite.Equal("SOLUSD", suite.client.DenormalizeProduct("SOLUSD"))
}

func (suite *KrakenTestSuite) TestSignatureVector() {
	// Expected value computed independently from the venue's documented
	// scheme: base64(HMAC-SHA512(base64decode(secret),
	// path + SHA256(nonce + urlencoded body))).
	suite.client.SetCredentials("key123", krakenTestSecret, "")

	form := url.Values{}
	form.Set("nonce", "1700000000000")

	signature, err := suite.client.sign("/0/private/Balance", "1700000000000", form)
	suite.NoError(err)
	suite.Equal("p0HwoxEv5TD9ihyoSmqj4WxLcOoSFIcNDNfpUeC6zTXOYJFq1svfiwg4vawmZd3X8uquXA+8lm03Wq9rAa+gKg==", signature)
}

func (suite *KrakenTestSuite) TestPrivateRequiresCredentials() {
	_, err := suite.client.GetBalances(context.Background())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNotAuthenticated))
}

func (suite *KrakenTestSuite) TestGetCandlesMalformedRowAborts() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	// Second row is truncated: the strict venue fails the whole fetch.
	suite.sender.queue(`{"error":[],"result":{"XXBTZUSD":[[1704067200,"99","101","98","100","99.5","10",5],[1704070800,"100"]],"last":1704070800}}`)

	_, err := suite.client.GetCandles(context.Background(), "XXBTZUSD", 60, start, end)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeCandleParseFailed))
}

func (suite *KrakenTestSuite) TestGetCandlesParsesAndFiltersWindow() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	// The second row sits past the requested window end and is dropped.
	suite.sender.queue(`{"error":[],"result":{"XXBTZUSD":[[1704067200,"99","101","98","100","99.5","10",5],[1704070800,"100","102","99","101","100.5","8",4]],"last":1704070800}}`)

	candles, err := suite.client.GetCandles(context.Background(), "XXBTZUSD", 60, start, end)
	suite.NoError(err)
	suite.Len(candles, 1)
	suite.True(candles[0].Open.Equal(decimal.NewFromInt(99)))
	suite.True(candles[0].Volume.Equal(decimal.NewFromInt(10)))
}

func (suite *KrakenTestSuite) TestEnvelopeErrorSurfaces() {
	suite.sender.queue(`{"error":["EQuery:Unknown asset pair"],"result":null}`)

	_, err := suite.client.GetTicker(context.Background(), "NOPE")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeRejected))
}

func (suite *KrakenTestSuite) TestGetTicker() {
	suite.sender.queue(`{"error":[],"result":{"XXBTZUSD":{"a":["50001.0","1","1.0"],"b":["49999.0","2","2.0"],"c":["50000.0","0.01"]}}}`)

	ticker, err := suite.client.GetTicker(context.Background(), "XXBTZUSD")
	suite.NoError(err)
	suite.True(ticker.Bid.Equal(decimal.NewFromFloat(49999.0)))
	suite.True(ticker.Ask.Equal(decimal.NewFromFloat(50001.0)))
	suite.True(ticker.Last.Equal(decimal.NewFromFloat(50000.0)))
}

func (suite *KrakenTestSuite) TestGetFeesConvertsPercentToFraction() {
	suite.client.SetCredentials("key123", krakenTestSecret, "")
	suite.sender.queue(`{"error":[],"result":{"fees":{"XXBTZUSD":{"fee":"0.2600"}},"fees_maker":{"XXBTZUSD":{"fee":"0.1600"}}}}`)

	fees, err := suite.client.GetFees(context.Background())
	suite.NoError(err)
	suite.True(fees.TakerRate.Equal(decimal.NewFromFloat(0.0026)))
	suite.True(fees.MakerRate.Equal(decimal.NewFromFloat(0.0016)))
}

func (suite *KrakenTestSuite) TestGetFeesFallsBackOnMissingSchedule() {
	suite.client.SetCredentials("key123", krakenTestSecret, "")
	suite.sender.queue(`{"error":[],"result":{}}`)

	fees, err := suite.client.GetFees(context.Background())
	suite.NoError(err)
	suite.True(fees.MakerRate.Equal(krakenDefaultFees.MakerRate))
	suite.True(fees.TakerRate.Equal(krakenDefaultFees.TakerRate))
}

func (suite *KrakenTestSuite) TestPlaceOrderBusinessRejection() {
	suite.client.SetCredentials("key123", krakenTestSecret, "")
	suite.sender.queue(`{"error":["EOrder:Insufficient funds"],"result":null}`)

	result, err := suite.client.PlaceOrder(context.Background(), validOrderRequest("XXBTZUSD"))
	suite.NoError(err)
	suite.False(result.Accepted)
	suite.Contains(result.Message, "Insufficient funds")
}

func (suite *KrakenTestSuite) TestPlaceOrderAccepted() {
	suite.client.SetCredentials("key123", krakenTestSecret, "")
	suite.sender.queue(`{"error":[],"result":{"txid":["OABC12-DEF34-GHI56"],"descr":{"order":"buy 0.5 XXBTZUSD @ market"}}}`)

	result, err := suite.client.PlaceOrder(context.Background(), validOrderRequest("XXBTZUSD"))
	suite.NoError(err)
	suite.True(result.Accepted)
	suite.Equal("OABC12-DEF34-GHI56", result.OrderID)

	sent := suite.sender.requests[0]
	suite.Equal("key123", sent.Headers["API-Key"])
	suite.NotEmpty(sent.Headers["API-Sign"])
	suite.Contains(string(sent.Body), "pair=XXBTZUSD")
	suite.Contains(string(sent.Body), "ordertype=market")
}

func (suite *KrakenTestSuite) TestGetOpenOrders() {
	suite.client.SetCredentials("key123", krakenTestSecret, "")
	suite.sender.queue(`{"error":[],"result":{"open":{"OTX1":{"vol":"0.5","descr":{"pair":"XBTUSD","type":"buy","price":"49000.0"}}}}}`)

	orders, err := suite.client.GetOpenOrders(context.Background())
	suite.NoError(err)
	suite.Len(orders, 1)
	suite.Equal("OTX1", orders[0].OrderID)
	suite.Equal("XBTUSD", orders[0].ProductID)
}
