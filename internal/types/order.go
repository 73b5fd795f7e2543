package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

type PurchaseType string

type OrderType string

type TimeInForce string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
)

// OrderRequest is a venue-agnostic order submission. ClientOrderID must be
// unique per submission so a retried request stays idempotent on the venue
// side.
type OrderRequest struct {
	ProductID   string       `json:"product_id" validate:"required"`
	Side        PurchaseType `json:"side" validate:"required,oneof=BUY SELL"`
	Type        OrderType    `json:"type" validate:"required,oneof=MARKET LIMIT"`
	Quantity    decimal.Decimal
	TimeInForce TimeInForce `json:"time_in_force" validate:"omitempty,oneof=GTC IOC"`
	// Limit is the limit price. None for market orders.
	Limit optional.Option[decimal.Decimal] `json:"limit"`
	// Stop is the protective stop level attached to the order, if any.
	Stop optional.Option[decimal.Decimal] `json:"stop"`
	// Target is the protective take-profit level attached to the order, if any.
	Target        optional.Option[decimal.Decimal] `json:"target"`
	ClientOrderID string                           `json:"client_order_id"`
}

// OrderResult is the venue's answer to an order submission. Accepted=false
// is a normal rejection outcome, not an error.
type OrderResult struct {
	OrderID      string          `json:"order_id"`
	Accepted     bool            `json:"accepted"`
	Filled       bool            `json:"filled"`
	FilledQty    decimal.Decimal `json:"filled_qty"`
	AvgFillPrice decimal.Decimal `json:"avg_fill_price"`
	Message      string          `json:"message"`
}

// Validate validates the OrderRequest struct.
func (o *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if o.Quantity.Sign() <= 0 {
		return errors.New(errors.ErrCodeInvalidOrder, "order quantity must be greater than zero")
	}

	if o.Type == OrderTypeLimit && o.Limit.IsNone() {
		return errors.New(errors.ErrCodeInvalidOrder, "limit order requires a limit price")
	}

	return nil
}
