// Package broker routes trade plans to a venue. A broker validates the plan
// locally, resolves signing credentials, and converts every outcome into an
// explicit (ok, message) pair; expected business conditions never surface as
// errors to the caller.
package broker

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/tide-trading/internal/types"
)

// quantityPrecision is the decimal-place limit enforced on venues that
// reject over-precise quantities.
const quantityPrecision = 6

// Broker is the contract shared by the paper and live implementations.
type Broker interface {
	// Service returns the broker identifier, e.g. "paper" or the venue name.
	Service() string
	// GetCapabilities reports what the venue natively supports so callers
	// know what the broker layer must emulate.
	GetCapabilities() types.BrokerCapabilities
	// ValidateTradePlan applies the local plan rules without touching the
	// network. A failed rule is a normal (false, reason) outcome.
	ValidateTradePlan(plan *types.TradePlan) (bool, string)
	// PlaceOrder validates, resolves credentials, and submits a market order
	// built from the plan.
	PlaceOrder(ctx context.Context, plan *types.TradePlan) (bool, string)
	// CancelAll cancels every open order, optionally filtered to one symbol.
	CancelAll(ctx context.Context, symbol string) (bool, string)
}

// validatePlan applies the shared plan rules. Precision is checked only for
// venues that enforce it; the paper broker never does.
func validatePlan(plan *types.TradePlan, enforcePrecision bool) (bool, string) {
	if plan == nil {
		return false, "trade plan is nil"
	}

	if plan.Symbol == "" {
		return false, "trade plan has no symbol"
	}

	if plan.Quantity.Sign() <= 0 {
		return false, fmt.Sprintf("quantity must be positive, got %s", plan.Quantity)
	}

	if enforcePrecision && !plan.Quantity.Round(quantityPrecision).Equal(plan.Quantity) {
		return false, fmt.Sprintf("quantity %s exceeds %d decimal places", plan.Quantity, quantityPrecision)
	}

	if plan.Entry.Sign() <= 0 {
		return false, fmt.Sprintf("entry price must be positive, got %s", plan.Entry)
	}

	if plan.Stop.Sign() <= 0 {
		return false, "protective stop is required"
	}

	if plan.Target.Sign() <= 0 {
		return false, "protective target is required"
	}

	return true, "ok"
}

// orderFromPlan builds the protocol-level market order for a plan. The
// client order id must be fresh per submission so venue-side idempotency
// never collides across retries of different submissions.
func orderFromPlan(plan *types.TradePlan, productID, clientOrderID string) types.OrderRequest {
	return types.OrderRequest{
		ProductID:     productID,
		Side:          plan.Side(),
		Type:          types.OrderTypeMarket,
		Quantity:      plan.Quantity,
		TimeInForce:   types.TimeInForceGTC,
		ClientOrderID: clientOrderID,
	}
}
