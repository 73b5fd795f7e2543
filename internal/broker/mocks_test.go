package broker

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/internal/exchange"
	"github.com/rxtech-lab/tide-trading/internal/types"
	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

var errMockCancel = errors.New(errors.ErrCodeCancelFailed, "cancel exploded")

// mockExchange records credential and order activity so tests can assert
// what reached the venue layer, and what never did.
type mockExchange struct {
	name string

	creds        exchange.Credentials
	credsSet     int
	placedOrders []types.OrderRequest
	canceledIDs  []string

	placeResult types.OrderResult
	placeErr    error
	openOrders  []exchange.OpenOrder
	openErr     error
	cancelErrAt string
}

func (m *mockExchange) Name() string {
	if m.name != "" {
		return m.name
	}

	return "mockvenue"
}

func (m *mockExchange) SetCredentials(key, secret, passphrase string) {
	m.creds = exchange.Credentials{Key: key, Secret: secret, Passphrase: passphrase}
	m.credsSet++
}

func (m *mockExchange) NormalizeProduct(uiSymbol string) string {
	return "norm:" + uiSymbol
}

func (m *mockExchange) DenormalizeProduct(venueSymbol string) string {
	return venueSymbol
}

func (m *mockExchange) ListProducts(context.Context) ([]string, error) {
	return nil, nil
}

func (m *mockExchange) GetCandles(context.Context, string, int, time.Time, time.Time) ([]types.Candle, error) {
	return nil, nil
}

func (m *mockExchange) GetTicker(context.Context, string) (types.Ticker, error) {
	return types.Ticker{}, nil
}

func (m *mockExchange) GetFees(context.Context) (types.FeeSchedule, error) {
	return types.FeeSchedule{}, nil
}

func (m *mockExchange) GetBalances(context.Context) (map[string]decimal.Decimal, error) {
	return nil, nil
}

func (m *mockExchange) PlaceOrder(_ context.Context, req types.OrderRequest) (types.OrderResult, error) {
	m.placedOrders = append(m.placedOrders, req)

	return m.placeResult, m.placeErr
}

func (m *mockExchange) CancelOrder(_ context.Context, orderID string) error {
	if m.cancelErrAt != "" && orderID == m.cancelErrAt {
		return errMockCancel
	}

	m.canceledIDs = append(m.canceledIDs, orderID)

	return nil
}

func (m *mockExchange) GetOpenOrders(context.Context) ([]exchange.OpenOrder, error) {
	return m.openOrders, m.openErr
}

// mockStore is an in-memory credential store. Values prefixed with "enc:"
// decrypt to the remainder; everything else is treated as unrecoverable so
// tests can exercise the raw fallback.
type mockStore struct {
	activeKeys map[string]string
	keys       map[string]KeyRecord
}

func (s *mockStore) ActiveKeyID(service string) string {
	return s.activeKeys[service]
}

func (s *mockStore) GetKey(id string) (KeyRecord, bool) {
	record, ok := s.keys[id]

	return record, ok
}

func (s *mockStore) Unprotect(value string) string {
	if plain, ok := strings.CutPrefix(value, "enc:"); ok {
		return plain
	}

	return ""
}

// mockAccounts maps account ids to key-entry ids.
type mockAccounts struct {
	bindings map[string]string
}

func (a *mockAccounts) KeyIDForAccount(accountID string) string {
	return a.bindings[accountID]
}
