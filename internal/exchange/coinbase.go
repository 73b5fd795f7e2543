package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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
	coinbaseBaseURL       = "https://api.exchange.coinbase.com"
	coinbaseMaxCandleRows = 300
)

// coinbaseGranularities are the candle buckets the venue serves, in minutes.
var coinbaseGranularities = []int{1, 5, 15, 60, 360, 1440}

// coinbaseDefaultFees is the fallback schedule when the fee response cannot
// be parsed.
var coinbaseDefaultFees = types.FeeSchedule{
	MakerRate: decimal.NewFromFloat(0.004),
	TakerRate: decimal.NewFromFloat(0.006),
}

// Coinbase is the Coinbase-style venue client. Requests are signed with
// HMAC-SHA256 over timestamp+METHOD+path+body using the base64-decoded
// secret, with a unix-seconds timestamp.
type Coinbase struct {
	baseURL string
	http    Sender
	log     *logger.Logger
	creds   Credentials
}

// NewCoinbase creates a Coinbase-style client against the production API.
func NewCoinbase(sender Sender, log *logger.Logger) *Coinbase {
	return &Coinbase{
		baseURL: coinbaseBaseURL,
		http:    sender,
		log:     log,
	}
}

// Name implements Exchange.
func (c *Coinbase) Name() string {
	return "coinbase"
}

// SetCredentials implements Exchange.
func (c *Coinbase) SetCredentials(key, secret, passphrase string) {
	c.creds = Credentials{Key: key, Secret: secret, Passphrase: passphrase}
}

// NormalizeProduct converts "BTC/USD" to the venue's "BTC-USD" spelling.
func (c *Coinbase) NormalizeProduct(uiSymbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(uiSymbol)), "/", "-")
}

// DenormalizeProduct converts "BTC-USD" back to canonical "BTC/USD".
func (c *Coinbase) DenormalizeProduct(venueSymbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(venueSymbol)), "-", "/")
}

// sign computes the request signature for the given timestamp and payload.
func (c *Coinbase) sign(timestamp, method, path string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(c.creds.Secret)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeSigningFailed, "secret is not valid base64", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + path + string(body)))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// private issues a signed request against path and returns the body.
func (c *Coinbase) private(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.creds.Key == "" || c.creds.Secret == "" {
		return nil, errors.New(errors.ErrCodeNotAuthenticated, "coinbase credentials are not set")
	}

	timestamp := strconv.FormatInt(time.Now().UTC().Unix(), 10)

	signature, err := c.sign(timestamp, method, path, body)
	if err != nil {
		return nil, err
	}

	return c.http.Send(ctx, transport.Request{
		Method: method,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"CB-ACCESS-KEY":        c.creds.Key,
			"CB-ACCESS-SIGN":       signature,
			"CB-ACCESS-TIMESTAMP":  timestamp,
			"CB-ACCESS-PASSPHRASE": c.creds.Passphrase,
			"Content-Type":         "application/json",
		},
		Body: body,
	})
}

// ListProducts implements Exchange.
func (c *Coinbase) ListProducts(ctx context.Context) ([]string, error) {
	body, err := c.http.Get(ctx, c.baseURL+"/products")
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeResponse, "coinbase products response", err)
	}

	products := make([]string, 0, len(rows))
	for _, row := range rows {
		products = append(products, row.ID)
	}

	return products, nil
}

// GetCandles implements Exchange. The venue serves at most 300 rows per
// call, so the requested window is split into sequential sub-windows and
// stitched back together, sorted and de-duplicated.
func (c *Coinbase) GetCandles(ctx context.Context, productID string, minutes int, start, end time.Time) ([]types.Candle, error) {
	granularity := SnapGranularity(minutes, coinbaseGranularities)
	if granularity != minutes {
		c.log.Warn("substituted unsupported granularity",
			zap.String("venue", c.Name()),
			zap.Int("requested_minutes", minutes),
			zap.Int("used_minutes", granularity),
		)
	}

	var candles []types.Candle

	for _, w := range chunkWindows(start, end, granularity, coinbaseMaxCandleRows) {
		query := url.Values{}
		query.Set("granularity", strconv.Itoa(granularity*60))
		query.Set("start", w.start.UTC().Format(time.RFC3339))
		query.Set("end", w.end.UTC().Format(time.RFC3339))

		body, err := c.http.Get(ctx, fmt.Sprintf("%s/products/%s/candles?%s", c.baseURL, productID, query.Encode()))
		if err != nil {
			return nil, err
		}

		chunk, err := c.parseCandleRows(body, w.end)
		if err != nil {
			return nil, err
		}

		candles = append(candles, chunk...)
	}

	return types.SortCandles(candles), nil
}

// parseCandleRows decodes the venue's [time, low, high, open, close, volume]
// rows, dropping anything stamped at or past the half-open window end. This
// venue occasionally returns truncated rows inside an otherwise valid page;
// those rows are skipped rather than failing the whole fetch.
func (c *Coinbase) parseCandleRows(body []byte, end time.Time) ([]types.Candle, error) {
	var rows [][]json.Number
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCandleParseFailed, "coinbase candles response", err)
	}

	candles := make([]types.Candle, 0, len(rows))

	for _, row := range rows {
		candle, ok := c.parseCandleRow(row)
		if !ok {
			c.log.Warn("skipping malformed candle row", zap.String("venue", c.Name()))

			continue
		}

		if candle.Time.Before(end) {
			candles = append(candles, candle)
		}
	}

	return candles, nil
}

func (c *Coinbase) parseCandleRow(row []json.Number) (types.Candle, bool) {
	if len(row) < 6 {
		return types.Candle{}, false
	}

	ts, err := row[0].Int64()
	if err != nil {
		return types.Candle{}, false
	}

	values := make([]decimal.Decimal, 0, 5)

	for _, field := range row[1:6] {
		value, err := decimal.NewFromString(field.String())
		if err != nil {
			return types.Candle{}, false
		}

		values = append(values, value)
	}

	return types.Candle{
		Time:   time.Unix(ts, 0).UTC(),
		Low:    values[0],
		High:   values[1],
		Open:   values[2],
		Close:  values[3],
		Volume: values[4],
	}, true
}

// GetTicker implements Exchange.
func (c *Coinbase) GetTicker(ctx context.Context, productID string) (types.Ticker, error) {
	body, err := c.http.Get(ctx, fmt.Sprintf("%s/products/%s/ticker", c.baseURL, productID))
	if err != nil {
		return types.Ticker{}, err
	}

	var resp struct {
		Bid   string    `json:"bid"`
		Ask   string    `json:"ask"`
		Price string    `json:"price"`
		Time  time.Time `json:"time"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Ticker{}, errors.Wrap(errors.ErrCodeTickerParseFailed, "coinbase ticker response", err)
	}

	bid, bidErr := decimal.NewFromString(resp.Bid)
	ask, askErr := decimal.NewFromString(resp.Ask)
	last, lastErr := decimal.NewFromString(resp.Price)

	if bidErr != nil || askErr != nil || lastErr != nil {
		return types.Ticker{}, errors.New(errors.ErrCodeTickerParseFailed, "coinbase ticker has non-numeric fields")
	}

	return types.Ticker{Bid: bid, Ask: ask, Last: last, Time: resp.Time.UTC()}, nil
}

// GetFees implements Exchange. A missing or unparsable fee field falls back
// to the venue default schedule.
func (c *Coinbase) GetFees(ctx context.Context) (types.FeeSchedule, error) {
	body, err := c.private(ctx, "GET", "/fees", nil)
	if err != nil {
		return types.FeeSchedule{}, err
	}

	var resp struct {
		MakerFeeRate string `json:"maker_fee_rate"`
		TakerFeeRate string `json:"taker_fee_rate"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return coinbaseDefaultFees, nil
	}

	maker, makerErr := decimal.NewFromString(resp.MakerFeeRate)
	taker, takerErr := decimal.NewFromString(resp.TakerFeeRate)

	if makerErr != nil || takerErr != nil {
		return coinbaseDefaultFees, nil
	}

	return types.FeeSchedule{MakerRate: maker, TakerRate: taker}, nil
}

// GetBalances implements Exchange.
func (c *Coinbase) GetBalances(ctx context.Context) (map[string]decimal.Decimal, error) {
	body, err := c.private(ctx, "GET", "/accounts", nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Currency string `json:"currency"`
		Balance  string `json:"balance"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBalanceParseFailed, "coinbase accounts response", err)
	}

	balances := make(map[string]decimal.Decimal)

	for _, row := range rows {
		balance, err := decimal.NewFromString(row.Balance)
		if err != nil {
			continue
		}

		if balance.Sign() > 0 {
			balances[row.Currency] = balance
		}
	}

	return balances, nil
}

// PlaceOrder implements Exchange. A venue-side 4xx rejection is reported as
// an unaccepted result with the venue's message, not an error.
func (c *Coinbase) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	payload := map[string]string{
		"product_id": req.ProductID,
		"side":       strings.ToLower(string(req.Side)),
		"type":       strings.ToLower(string(req.Type)),
		"size":       req.Quantity.String(),
		"client_oid": req.ClientOrderID,
	}

	if req.Type == types.OrderTypeLimit {
		if req.Limit.IsSome() {
			payload["price"] = req.Limit.Unwrap().String()
		}

		if req.TimeInForce != "" {
			payload["time_in_force"] = string(req.TimeInForce)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeInvalidOrder, "coinbase order payload", err)
	}

	respBody, err := c.private(ctx, "POST", "/orders", body)
	if err != nil {
		if result, ok := rejectionResult(err); ok {
			return result, nil
		}

		return types.OrderResult{}, err
	}

	var resp struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		FilledSize string `json:"filled_size"`
		Price      string `json:"price"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return types.OrderResult{}, errors.Wrap(errors.ErrCodeExchangeResponse, "coinbase order response", err)
	}

	filledQty, _ := decimal.NewFromString(resp.FilledSize)
	avgPrice, _ := decimal.NewFromString(resp.Price)

	return types.OrderResult{
		OrderID:      resp.ID,
		Accepted:     resp.ID != "",
		Filled:       resp.Status == "done",
		FilledQty:    filledQty,
		AvgFillPrice: avgPrice,
		Message:      resp.Status,
	}, nil
}

// CancelOrder implements Exchange.
func (c *Coinbase) CancelOrder(ctx context.Context, orderID string) error {
	_, err := c.private(ctx, "DELETE", "/orders/"+orderID, nil)

	return err
}

// GetOpenOrders implements Exchange.
func (c *Coinbase) GetOpenOrders(ctx context.Context) ([]OpenOrder, error) {
	body, err := c.private(ctx, "GET", "/orders?status=open", nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID        string `json:"id"`
		ProductID string `json:"product_id"`
		Side      string `json:"side"`
		Size      string `json:"size"`
		Price     string `json:"price"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, errors.Wrap(errors.ErrCodeExchangeResponse, "coinbase open orders response", err)
	}

	orders := make([]OpenOrder, 0, len(rows))

	for _, row := range rows {
		quantity, _ := decimal.NewFromString(row.Size)
		price, _ := decimal.NewFromString(row.Price)

		orders = append(orders, OpenOrder{
			OrderID:   row.ID,
			ProductID: row.ProductID,
			Side:      types.PurchaseType(strings.ToUpper(row.Side)),
			Quantity:  quantity,
			Price:     price,
		})
	}

	return orders, nil
}

// rejectionResult converts a 4xx placement failure into an unaccepted order
// result carrying the venue's message. Server-side and transport failures
// stay errors.
func rejectionResult(err error) (types.OrderResult, bool) {
	var statusErr *transport.HTTPStatusError
	if !errors.As(err, &statusErr) {
		return types.OrderResult{}, false
	}

	if statusErr.StatusCode < 400 || statusErr.StatusCode > 499 {
		return types.OrderResult{}, false
	}

	message := statusErr.Body

	var resp struct {
		Message string `json:"message"`
	}
	if jsonErr := json.Unmarshal([]byte(statusErr.Body), &resp); jsonErr == nil && resp.Message != "" {
		message = resp.Message
	}

	return types.OrderResult{Accepted: false, Message: message}, true
}
