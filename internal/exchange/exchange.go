// Package exchange implements the venue protocol clients. Each venue speaks
// its own authenticated REST dialect (signing scheme, symbol spelling,
// granularity buckets, pagination limits) behind one common contract.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/internal/transport"
	"github.com/rxtech-lab/tide-trading/internal/types"
)

// Sender is the outbound HTTP surface consumed by every venue client.
// *transport.Client satisfies it; tests substitute a recorder.
type Sender interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Send(ctx context.Context, req transport.Request) ([]byte, error)
}

// Credentials are the authentication material for one venue key entry.
// Passphrase doubles as the customer id on venues that sign with one.
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// OpenOrder is a resting order as reported by a venue.
type OpenOrder struct {
	OrderID   string
	ProductID string
	Side      types.PurchaseType
	Quantity  decimal.Decimal
	Price     decimal.Decimal
}

// Exchange is the common contract every venue client implements. Signing
// math stays private inside each implementation because the payload
// composition differs structurally between venues.
type Exchange interface {
	// Name returns the venue identifier, e.g. "coinbase".
	Name() string
	// SetCredentials configures the signing material for private calls.
	SetCredentials(key, secret, passphrase string)
	// NormalizeProduct translates a canonical "BASE/QUOTE" symbol into the
	// venue's native spelling.
	NormalizeProduct(uiSymbol string) string
	// DenormalizeProduct inverts NormalizeProduct for the venue's known
	// symbol set and passes unrecognized symbols through unchanged.
	DenormalizeProduct(venueSymbol string) string
	// ListProducts returns the venue's tradeable products in venue spelling.
	ListProducts(ctx context.Context) ([]string, error)
	// GetCandles fetches [start,end) at the requested granularity in
	// minutes, snapping to the nearest supported bucket and paginating as
	// the venue requires. Results are ascending and de-duplicated by time.
	GetCandles(ctx context.Context, productID string, minutes int, start, end time.Time) ([]types.Candle, error)
	// GetTicker returns the current best bid/ask snapshot.
	GetTicker(ctx context.Context, productID string) (types.Ticker, error)
	// GetFees returns the account fee schedule, falling back to the venue
	// default when the response cannot be parsed.
	GetFees(ctx context.Context) (types.FeeSchedule, error)
	// GetBalances returns non-zero balances keyed by currency.
	GetBalances(ctx context.Context) (map[string]decimal.Decimal, error)
	// PlaceOrder submits an order. A venue-side rejection is reported via
	// OrderResult.Accepted=false, not an error.
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
	// CancelOrder cancels a single resting order by venue order id.
	CancelOrder(ctx context.Context, orderID string) error
	// GetOpenOrders lists all resting orders for the account.
	GetOpenOrders(ctx context.Context) ([]OpenOrder, error)
}
