package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tide-trading/internal/logger"
	"github.com/rxtech-lab/tide-trading/internal/transport"
	"github.com/rxtech-lab/tide-trading/internal/types"
	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

const (
	bitstampBaseURL       = "https://www.bitstamp.net/api/v2"
	bitstampMaxCandleRows = 1000
)

var bitstampGranularities = []int{1, 3, 5, 15, 30, 60, 120, 240, 360, 720, 1440}

var bitstampDefaultFees = types.FeeSchedule{
	MakerRate: decimal.NewFromFloat(0.005),
	TakerRate: decimal.NewFromFloat(0.005),
}

// bitstampQuotes are the quote currencies used to split a venue compound
// ticker back into BASE/QUOTE. Longer symbols first so "usdt" wins over
// "usd" ("btcusdt" splits as BTC/USDT, not BTCT/USD... wrong base).
var bitstampQuotes = []string{"usdt", "usdc", "usd", "eur", "gbp", "btc", "eth"}

// Bitstamp is the Bitstamp-style venue client. Private requests are
// form-encoded and carry key/signature/nonce fields, where the signature is
// uppercase-hex HMAC-SHA256(secret, nonce + customerID + apiKey) with the
// secret used as plain ASCII.
type Bitstamp struct {
	baseURL string
	http    Sender
	log     *logger.Logger
	creds   Credentials
}

// NewBitstamp creates a Bitstamp-style client against the production API.
func NewBitstamp(sender Sender, log *logger.Logger) *Bitstamp {
	return &Bitstamp{
		baseURL: bitstampBaseURL,
		http:    sender,
		log:     log,
	}
}

// Name implements Exchange.
func (b *Bitstamp) Name() string {
	return "bitstamp"
}

// SetCredentials implements Exchange. The passphrase slot carries the
// venue's customer id, which participates in the signature.
func (b *Bitstamp) SetCredentials(key, secret, passphrase string) {
	b.creds = Credentials{Key: key, Secret: secret, Passphrase: passphrase}
}

// NormalizeProduct converts "BTC/USD" to the venue's "btcusd" spelling.
func (b *Bitstamp) NormalizeProduct(uiSymbol string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(uiSymbol), "/", ""))
}

// DenormalizeProduct splits a compound venue ticker on the known quote
// currencies; unrecognized symbols pass through unchanged.
func (b *Bitstamp) DenormalizeProduct(venueSymbol string) string {
	symbol := strings.ToLower(strings.TrimSpace(venueSymbol))

	for _, quote := range bitstampQuotes {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			base := symbol[:len(symbol)-len(quote)]

			return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
		}
	}

	return venueSymbol
}

// sign computes the uppercase-hex signature over nonce+customerID+apiKey.
func (b *Bitstamp) sign(nonce string) string {
	mac := hmac.New(sha256.New, []byte(b.creds.Secret))
	mac.Write([]byte(nonce + b.creds.Passphrase + b.creds.Key))

	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// private issues a signed form-encoded POST and returns the body.
func (b *Bitstamp) private(ctx context.Context, path string, form url.Values) ([]byte, error) {
	if b.creds.Key == "" || b.creds.Secret == "" {
		return nil, errors.New(errors.ErrCodeNotAuthenticated, "bitstamp credentials are not set")
	}

	if form == nil {
		form = url.Values{}
	}

	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	form.Set("key", b.creds.Key)
	form.Set("signature", b.sign(nonce))
	form.Set("nonce", nonce)

	return b.http.Send(ctx, transport.Request{
		Method: "POST",
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	})
}

// ListProducts implements Exchange.
func (b *Bitstamp) ListProducts(ctx context.Context) ([]string, error) {
	body, err := b.http.Get(ctx, b.baseURL+"/trading-pairs-info/")
	if err != nil {
		return nil, err
	}

	var rows []struct {
		URLSymbol string `json:"url_symbol"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeResponse, "bitstamp trading pairs response", err)
	}

	products := make([]string, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.URLSymbol)
	}

	return products, nil
}

// GetCandles implements Exchange.
func (b *Bitstamp) GetCandles(ctx context.Context, productID string, minutes int, start, end time.Time) ([]types.Candle, error) {
	granularity := SnapGranularity(minutes, bitstampGranularities)
	if granularity != minutes {
		b.log.Warn("substituted unsupported granularity",
			zap.String("venue", b.Name()),
			zap.Int("requested_minutes", minutes),
			zap.Int("used_minutes", granularity),
		)
	}

	var candles []types.Candle

	for _, w := range chunkWindows(start, end, granularity, bitstampMaxCandleRows) {
		query := url.Values{}
		query.Set("step", strconv.Itoa(granularity*60))
		query.Set("limit", strconv.Itoa(bitstampMaxCandleRows))
		query.Set("start", strconv.FormatInt(w.start.UTC().Unix(), 10))

		body, err := b.http.Get(ctx, fmt.Sprintf("%s/ohlc/%s/?%s", b.baseURL, productID, query.Encode()))
		if err != nil {
			return nil, err
		}

		chunk, err := b.parseOHLC(body, w.end)
		if err != nil {
			return nil, err
		}

		candles = append(candles, chunk...)
	}

	return types.SortCandles(candles), nil
}

// parseOHLC decodes the venue's string-valued OHLC rows. This venue has a
// history of emitting partially-shaped rows around maintenance windows, so a
// malformed row is skipped rather than failing the whole fetch.
func (b *Bitstamp) parseOHLC(body []byte, end time.Time) ([]types.Candle, error) {
	var resp struct {
		Data struct {
			OHLC []map[string]string `json:"ohlc"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "bitstamp ohlc response", err)
	}

	candles := make([]types.Candle, 0, len(resp.Data.OHLC))

	for _, row := range resp.Data.OHLC {
		candle, ok := b.parseOHLCRow(row)
		if !ok {
			b.log.Warn("skipping malformed candle row", zap.String("venue", b.Name()))

			continue
		}

		if candle.Time.Before(end) {
			candles = append(candles, candle)
		}
	}

	return candles, nil
}

func (b *Bitstamp) parseOHLCRow(row map[string]string) (types.Candle, bool) {
	ts, err := strconv.ParseInt(row["timestamp"], 10, 64)
	if err != nil {
		return types.Candle{}, false
	}

	fields := make(map[string]decimal.Decimal, 5)

	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		value, err := decimal.NewFromString(row[name])
		if err != nil {
			return types.Candle{}, false
		}

		fields[name] = value
	}

	return types.Candle{
		Time:   time.Unix(ts, 0).UTC(),
		Open:   fields["open"],
		High:   fields["high"],
		Low:    fields["low"],
		Close:  fields["close"],
		Volume: fields["volume"],
	}, true
}

// GetTicker implements Exchange.
func (b *Bitstamp) GetTicker(ctx context.Context, productID string) (types.Ticker, error) {
	body, err := b.http.Get(ctx, fmt.Sprintf("%s/ticker/%s/", b.baseURL, productID))
	if err != nil {
		return types.Ticker{}, err
	}

	var resp struct {
		Bid       string `json:"bid"`
		Ask       string `json:"ask"`
		Last      string `json:"last"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Ticker{}, errors.Wrap(errors.ErrCodeTickerParseFailed, "bitstamp ticker response", err)
	}

	bid, bidErr := decimal.NewFromString(resp.Bid)
	ask, askErr := decimal.NewFromString(resp.Ask)
	last, lastErr := decimal.NewFromString(resp.Last)
	ts, tsErr := strconv.ParseInt(resp.Timestamp, 10, 64)

	if bidErr != nil || askErr != nil || lastErr != nil || tsErr != nil {
		return types.Ticker{}, errors.New(errors.ErrCodeTickerParseFailed, "bitstamp ticker has non-numeric fields")
	}

	return types.Ticker{Bid: bid, Ask: ask, Last: last, Time: time.Unix(ts, 0).UTC()}, nil
}

// GetFees implements Exchange. The venue reports per-pair fees as
// percentages inside the balance payload; the first fee field found is used
// for both sides, falling back to the venue default.
func (b *Bitstamp) GetFees(ctx context.Context) (types.FeeSchedule, error) {
	body, err := b.private(ctx, "/balance/", nil)
	if err != nil {
		return types.FeeSchedule{}, err
	}

	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		return bitstampDefaultFees, nil
	}

	for field, raw := range payload {
		if !strings.HasSuffix(field, "_fee") {
			continue
		}

		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return bitstampDefaultFees, nil
		}

		fraction := rate.Div(decimal.NewFromInt(100))

		return types.FeeSchedule{MakerRate: fraction, TakerRate: fraction}, nil
	}

	return bitstampDefaultFees, nil
}

// GetBalances implements Exchange.
func (b *Bitstamp) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	body, err := b.private(ctx, "/balance/", nil)
	if err != nil {
		return nil, err
	}

	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBalanceParseFailed, "bitstamp balance response", err)
	}

	balances := make(map[string]decimal.Decimal)

	for field, raw := range payload {
		currency, ok := strings.CutSuffix(field, "_balance")
		if !ok {
			continue
		}

		balance, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}

		if balance.Sign() > 0 {
			balances[strings.ToUpper(currency)] = balance
		}
	}

	return balances, nil
}

// PlaceOrder implements Exchange.
func (b *Bitstamp) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	form := url.Values{}
	form.Set("amount", req.Quantity.String())
	form.Set("client_order_id", req.ClientOrderID)

	var path string

	side := strings.ToLower(string(req.Side))

	switch req.Type {
	case types.OrderTypeMarket:
		path = fmt.Sprintf("/%s/market/%s/", side, req.ProductID)
	case types.OrderTypeLimit:
		path = fmt.Sprintf("/%s/%s/", side, req.ProductID)

		if req.Limit.IsSome() {
			form.Set("price", req.Limit.Unwrap().String())
		}
	default:
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order type: %s", req.Type)
	}

	body, err := b.private(ctx, path, form)
	if err != nil {
		if result, ok := rejectionResult(err); ok {
			return result, nil
		}

		return types.OrderResult{}, err
	}

	var resp struct {
		ID     string          `json:"id"`
		Price  string          `json:"price"`
		Amount string          `json:"amount"`
		Status string          `json:"status"`
		Reason json.RawMessage `json:"reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeExchangeResponse, "bitstamp order response", err)
	}

	if resp.Status == "error" {
		return types.OrderResult{Accepted: false, Message: string(resp.Reason)}, nil
	}

	filledQty, _ := decimal.NewFromString(resp.Amount)
	avgPrice, _ := decimal.NewFromString(resp.Price)

	return types.OrderResult{
		OrderID:      resp.ID,
		Accepted:     resp.ID != "",
		FilledQty:    filledQty,
		AvgFillPrice: avgPrice,
	}, nil
}

// CancelOrder implements Exchange.
func (b *Bitstamp) CancelOrder(ctx context.Context, orderID string) error {
	form := url.Values{}
	form.Set("id", orderID)

	body, err := b.private(ctx, "/cancel_order/", form)
	if err != nil {
		return err
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return errors.Newf(errors.ErrCodeCancelFailed, "bitstamp: %s", resp.Error)
	}

	return nil
}

// GetOpenOrders implements Exchange.
func (b *Bitstamp) GetOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	body, err := b.private(ctx, "/open_orders/all/", nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID           string `json:"id"`
		Type         string `json:"type"`
		Price        string `json:"price"`
		Amount       string `json:"amount"`
		CurrencyPair string `json:"currency_pair"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeResponse, "bitstamp open orders response", err)
	}

	orders := make([]OpenOrder, 0, len(rows))

	for _, row := range rows {
		quantity, _ := decimal.NewFromString(row.Amount)
		price, _ := decimal.NewFromString(row.Price)

		side := types.PurchaseTypeBuy
		if row.Type == "1" {
			side = types.PurchaseTypeSell
		}

		orders = append(orders, OpenOrder{
			OrderID:   row.ID,
			ProductID: b.NormalizeProduct(row.CurrencyPair),
			Side:      side,
			Quantity:  quantity,
			Price:     price,
		})
	}

	return orders, nil
}
