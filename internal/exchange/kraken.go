package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
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
	krakenBaseURL       = "https://api.kraken.com"
	krakenMaxCandleRows = 720
)

var krakenGranularities = []int{1, 5, 15, 30, 60, 240, 1440}

var krakenDefaultFees = types.FeeSchedule{
	MakerRate: decimal.NewFromFloat(0.0016),
	TakerRate: decimal.NewFromFloat(0.0026),
}

// krakenPairAliases maps canonical "BASE/QUOTE" symbols to the venue's
// legacy compound tickers. BTC is spelled XBT there, so the venue ticker is
// not the literal concatenation of the canonical parts.
var krakenPairAliases = map[string]string{
	"BTC/USD": "XXBTZUSD",
	"BTC/EUR": "XXBTZEUR",
	"ETH/USD": "XETHZUSD",
	"ETH/EUR": "XETHZEUR",
	"LTC/USD": "XLTCZUSD",
	"XRP/USD": "XXRPZUSD",
}

// krakenPairCanonical is the exact inverse of krakenPairAliases.
var krakenPairCanonical = func() map[string]string {
	inverse := make(map[string]string, len(krakenPairAliases))
	for canonical, alias := range krakenPairAliases {
		inverse[alias] = canonical
	}

	return inverse
}()

// Kraken is the Kraken-style venue client. Private requests carry a
// unix-millisecond nonce and are signed with
// HMAC-SHA512(secret, path + SHA256(nonce + urlencoded body)) where the
// secret is base64-decoded first.
type Kraken struct {
	baseURL string
	http    Sender
	log     *logger.Logger
	creds   Credentials
}

// NewKraken creates a Kraken-style client against the production API.
func NewKraken(sender Sender, log *logger.Logger) *Kraken {
	return &Kraken{
		baseURL: krakenBaseURL,
		http:    sender,
		log:     log,
	}
}

// Name implements Exchange.
func (k *Kraken) Name() string {
	return "kraken"
}

// SetCredentials implements Exchange.
func (k *Kraken) SetCredentials(key, secret, passphrase string) {
	k.creds = Credentials{Key: key, Secret: secret, Passphrase: passphrase}
}

// NormalizeProduct maps canonical symbols through the legacy alias table,
// falling back to plain concatenation for pairs without an alias.
func (k *Kraken) NormalizeProduct(uiSymbol string) string {
	symbol := strings.ToUpper(strings.TrimSpace(uiSymbol))

	if alias, ok := krakenPairAliases[symbol]; ok {
		return alias
	}

	return strings.ReplaceAll(symbol, "/", "")
}

// DenormalizeProduct inverts the alias table exactly; unrecognized venue
// symbols pass through unchanged.
func (k *Kraken) DenormalizeProduct(venueSymbol string) string {
	symbol := strings.ToUpper(strings.TrimSpace(venueSymbol))

	if canonical, ok := krakenPairCanonical[symbol]; ok {
		return canonical
	}

	return venueSymbol
}

// sign computes the private-endpoint signature for the given nonce and form.
func (k *Kraken) sign(path, nonce string, form url.Values) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(k.creds.Secret)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeSigningFailed, "secret is not valid base64", err)
	}

	digest := sha256.Sum256([]byte(nonce + form.Encode()))

	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// krakenEnvelope is the standard response wrapper of this venue.
type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (k *Kraken) decodeEnvelope(body []byte) (json.RawMessage, error) {
	var envelope krakenEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeResponse, "kraken response envelope", err)
	}

	if len(envelope.Error) > 0 {
		return nil, errors.Newf(errors.ErrCodeExchangeRejected, "kraken: %s", strings.Join(envelope.Error, "; "))
	}

	return envelope.Result, nil
}

// private issues a signed form-encoded POST and returns the result payload.
func (k *Kraken) private(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	if k.creds.Key == "" || k.creds.Secret == "" {
		return nil, errors.New(errors.ErrCodeNotAuthenticated, "kraken credentials are not set")
	}

	if form == nil {
		form = url.Values{}
	}

	nonce := strconv.FormatInt(time.Now().UnixMilli(), 10)
	form.Set("nonce", nonce)

	signature, err := k.sign(path, nonce, form)
	if err != nil {
		return nil, err
	}

	body, err := k.http.Send(ctx, transport.Request{
		Method: "POST",
		URL:    k.baseURL + path,
		Headers: map[string]string{
			"API-Key":      k.creds.Key,
			"API-Sign":     signature,
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	})
	if err != nil {
		return nil, err
	}

	return k.decodeEnvelope(body)
}

// public issues an unsigned GET and unwraps the response envelope.
func (k *Kraken) public(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	target := k.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	body, err := k.http.Get(ctx, target)
	if err != nil {
		return nil, err
	}

	return k.decodeEnvelope(body)
}

// ListProducts implements Exchange.
func (k *Kraken) ListProducts(ctx context.Context) ([]string, error) {
	result, err := k.public(ctx, "/0/public/AssetPairs", nil)
	if err != nil {
		return nil, err
	}

	var pairs map[string]json.RawMessage
	if err := json.Unmarshal(result, &pairs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeResponse, "kraken asset pairs response", err)
	}

	products := make([]string, 0, len(pairs))
	for pair := range pairs {
		products = append(products, pair)
	}

	return products, nil
}

// GetCandles implements Exchange. This venue aborts the whole fetch on a
// malformed row: its OHLC payload is positional and a short row means the
// page itself cannot be trusted.
func (k *Kraken) GetCandles(ctx context.Context, productID string, minutes int, start, end time.Time) ([]types.Candle, error) {
	granularity := SnapGranularity(minutes, krakenGranularities)
	if granularity != minutes {
		k.log.Warn("substituted unsupported granularity",
			zap.String("venue", k.Name()),
			zap.Int("requested_minutes", minutes),
			zap.Int("used_minutes", granularity),
		)
	}

	var candles []types.Candle

	for _, w := range chunkWindows(start, end, granularity, krakenMaxCandleRows) {
		query := url.Values{}
		query.Set("pair", productID)
		query.Set("interval", strconv.Itoa(granularity))
		query.Set("since", strconv.FormatInt(w.start.UTC().Unix(), 10))

		result, err := k.public(ctx, "/0/public/OHLC", query)
		if err != nil {
			return nil, err
		}

		chunk, err := k.parseOHLC(result, productID, w.end)
		if err != nil {
			return nil, err
		}

		candles = append(candles, chunk...)
	}

	return types.SortCandles(candles), nil
}

func (k *Kraken) parseOHLC(result json.RawMessage, productID string, end time.Time) ([]types.Candle, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "kraken ohlc response", err)
	}

	rowsRaw, ok := payload[productID]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeCandleParseFailed, "kraken ohlc response missing pair %s", productID)
	}

	var rows [][]json.Number
	if err := json.Unmarshal(rowsRaw, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "kraken ohlc rows", err)
	}

	candles := make([]types.Candle, 0, len(rows))

	for _, row := range rows {
		// [time, open, high, low, close, vwap, volume, count]
		if len(row) < 8 {
			return nil, errors.New(errors.ErrCodeCandleParseFailed, "kraken ohlc row is truncated")
		}

		ts, err := row[0].Int64()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "kraken ohlc timestamp", err)
		}

		rowTime := time.Unix(ts, 0).UTC()
		if !rowTime.Before(end) {
			continue
		}

		values := make([]decimal.Decimal, 0, 4)

		for _, field := range []json.Number{row[1], row[2], row[3], row[4]} {
			value, err := decimal.NewFromString(field.String())
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "kraken ohlc price field", err)
			}

			values = append(values, value)
		}

		volume, err := decimal.NewFromString(row[6].String())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "kraken ohlc volume field", err)
		}

		candles = append(candles, types.Candle{
			Time:   rowTime,
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: volume,
		})
	}

	return candles, nil
}

// GetTicker implements Exchange.
func (k *Kraken) GetTicker(ctx context.Context, productID string) (types.Ticker, error) {
	query := url.Values{}
	query.Set("pair", productID)

	result, err := k.public(ctx, "/0/public/Ticker", query)
	if err != nil {
		return types.Ticker{}, err
	}

	var payload map[string]struct {
		Ask  []string `json:"a"`
		Bid  []string `json:"b"`
		Last []string `json:"c"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return types.Ticker{}, errors.Wrap(errors.ErrCodeTickerParseFailed, "kraken ticker response", err)
	}

	entry, ok := payload[productID]
	if !ok || len(entry.Ask) == 0 || len(entry.Bid) == 0 || len(entry.Last) == 0 {
		return types.Ticker{}, errors.Newf(errors.ErrCodeTickerParseFailed, "kraken ticker missing pair %s", productID)
	}

	ask, askErr := decimal.NewFromString(entry.Ask[0])
	bid, bidErr := decimal.NewFromString(entry.Bid[0])
	last, lastErr := decimal.NewFromString(entry.Last[0])

	if askErr != nil || bidErr != nil || lastErr != nil {
		return types.Ticker{}, errors.New(errors.ErrCodeTickerParseFailed, "kraken ticker has non-numeric fields")
	}

	return types.Ticker{Bid: bid, Ask: ask, Last: last, Time: time.Now().UTC()}, nil
}

// GetFees implements Exchange. Fee rates arrive as percentages; a missing or
// unparsable schedule falls back to the venue default.
func (k *Kraken) GetFees(ctx context.Context) (types.FeeSchedule, error) {
	result, err := k.private(ctx, "/0/private/TradeVolume", nil)
	if err != nil {
		return types.FeeSchedule{}, err
	}

	var payload struct {
		Fees      map[string]struct{ Fee string } `json:"fees"`
		FeesMaker map[string]struct{ Fee string } `json:"fees_maker"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return krakenDefaultFees, nil
	}

	taker, takerOK := firstFeeRate(payload.Fees)
	maker, makerOK := firstFeeRate(payload.FeesMaker)

	if !takerOK || !makerOK {
		return krakenDefaultFees, nil
	}

	return types.FeeSchedule{MakerRate: maker, TakerRate: taker}, nil
}

func firstFeeRate(fees map[string]struct{ Fee string }) (decimal.Decimal, bool) {
	for _, entry := range fees {
		rate, err := decimal.NewFromString(entry.Fee)
		if err != nil {
			return decimal.Zero, false
		}

		// percentage to fraction
		return rate.Div(decimal.NewFromInt(100)), true
	}

	return decimal.Zero, false
}

// GetBalances implements Exchange.
func (k *Kraken) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	result, err := k.private(ctx, "/0/private/Balance", nil)
	if err != nil {
		return nil, err
	}

	var payload map[string]string
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBalanceParseFailed, "kraken balance response", err)
	}

	balances := make(map[string]decimal.Decimal)

	for currency, raw := range payload {
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}

		if balance.Sign() > 0 {
			balances[currency] = balance
		}
	}

	return balances, nil
}

// PlaceOrder implements Exchange. A venue business rejection (error array in
// a 200 response) is reported as an unaccepted result.
func (k *Kraken) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	form := url.Values{}
	form.Set("pair", req.ProductID)
	form.Set("type", strings.ToLower(string(req.Side)))
	form.Set("ordertype", strings.ToLower(string(req.Type)))
	form.Set("volume", req.Quantity.String())
	form.Set("cl_ord_id", req.ClientOrderID)

	if req.Type == types.OrderTypeLimit && req.Limit.IsSome() {
		form.Set("price", req.Limit.Unwrap().String())
	}

	result, err := k.private(ctx, "/0/private/AddOrder", form)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeExchangeRejected) {
			return types.OrderResult{Accepted: false, Message: err.Error()}, nil
		}

		return types.OrderResult{}, err
	}

	var payload struct {
		TxID  []string `json:"txid"`
		Descr struct {
			Order string `json:"order"`
		} `json:"descr"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeExchangeResponse, "kraken add order response", err)
	}

	if len(payload.TxID) == 0 {
		return types.OrderResult{Accepted: false, Message: "kraken returned no transaction id"}, nil
	}

	return types.OrderResult{
		OrderID:  payload.TxID[0],
		Accepted: true,
		Message:  payload.Descr.Order,
	}, nil
}

// CancelOrder implements Exchange.
func (k *Kraken) CancelOrder(ctx context.Context, orderID string) error {
	form := url.Values{}
	form.Set("txid", orderID)

	_, err := k.private(ctx, "/0/private/CancelOrder", form)

	return err
}

// GetOpenOrders implements Exchange.
func (k *Kraken) GetOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	result, err := k.private(ctx, "/0/private/OpenOrders", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Open map[string]struct {
			Vol   string `json:"vol"`
			Descr struct {
				Pair  string `json:"pair"`
				Type  string `json:"type"`
				Price string `json:"price"`
			} `json:"descr"`
		} `json:"open"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeResponse, "kraken open orders response", err)
	}

	orders := make([]OpenOrder, 0, len(payload.Open))

	for txid, entry := range payload.Open {
		quantity, _ := decimal.NewFromString(entry.Vol)
		price, _ := decimal.NewFromString(entry.Descr.Price)

		orders = append(orders, OpenOrder{
			OrderID:   txid,
			ProductID: entry.Descr.Pair,
			Side:      types.PurchaseType(strings.ToUpper(entry.Descr.Type)),
			Quantity:  quantity,
			Price:     price,
		})
	}

	return orders, nil
}
