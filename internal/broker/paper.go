package broker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rxtech-lab/tide-trading/internal/logger"
	"github.com/rxtech-lab/tide-trading/internal/types"
)

// PaperBroker simulates fills locally. It applies the same plan rules as a
// live broker (minus venue precision) but never touches the network: the
// plan's entry price is echoed back as the simulated fill.
type PaperBroker struct {
	log *logger.Logger
}

// NewPaperBroker creates a paper broker.
func NewPaperBroker(log *logger.Logger) *PaperBroker {
	return &PaperBroker{log: log}
}

// Service implements Broker.
func (b *PaperBroker) Service() string {
	return "paper"
}

// GetCapabilities implements Broker.
func (b *PaperBroker) GetCapabilities() types.BrokerCapabilities {
	return types.BrokerCapabilities{
		SupportsMarketEntry:     true,
		SupportsProtectiveExits: true,
		EnforcesPrecisionRules:  false,
		Notes:                   "simulated fills at the requested entry price",
	}
}

// ValidateTradePlan implements Broker.
func (b *PaperBroker) ValidateTradePlan(plan *types.TradePlan) (bool, string) {
	return validatePlan(plan, false)
}

// PlaceOrder implements Broker.
func (b *PaperBroker) PlaceOrder(_ context.Context, plan *types.TradePlan) (bool, string) {
	if ok, message := b.ValidateTradePlan(plan); !ok {
		return false, message
	}

	b.log.Info("paper fill",
		zap.String("symbol", plan.Symbol),
		zap.String("side", string(plan.Side())),
		zap.String("quantity", plan.Quantity.String()),
		zap.String("price", plan.Entry.String()),
	)

	return true, fmt.Sprintf("paper fill %s %s @ %s", plan.Side(), plan.Quantity, plan.Entry)
}

// CancelAll implements Broker. A paper broker holds no resting orders.
func (b *PaperBroker) CancelAll(context.Context, string) (bool, string) {
	return true, "canceled=0"
}
