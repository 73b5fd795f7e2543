package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

// TradePlan is an intended trade handed to a broker. A plan is immutable
// once submitted: a rejection never mutates it.
type TradePlan struct {
	PlanID   string `yaml:"plan_id" json:"plan_id" validate:"required"`
	Strategy string `yaml:"strategy" json:"strategy"`
	Symbol   string `yaml:"symbol" json:"symbol" validate:"required"`
	// Granularity is the candle bucket in minutes the plan was built from.
	Granularity int `yaml:"granularity" json:"granularity"`
	// Direction is positive for long/buy, non-positive for short/sell.
	Direction int             `yaml:"direction" json:"direction"`
	Entry     decimal.Decimal `yaml:"entry" json:"entry"`
	Stop      decimal.Decimal `yaml:"stop" json:"stop"`
	Target    decimal.Decimal `yaml:"target" json:"target"`
	Quantity  decimal.Decimal `yaml:"quantity" json:"quantity"`
	Note      string          `yaml:"note" json:"note"`
	AccountID string          `yaml:"account_id" json:"account_id"`
	CreatedAt time.Time       `yaml:"created_at" json:"created_at"`
}

// NewPlanID returns a fresh unique plan identifier.
func NewPlanID() string {
	return uuid.New().String()
}

// Side derives the order side from the plan direction sign.
func (p *TradePlan) Side() PurchaseType {
	if p.Direction > 0 {
		return PurchaseTypeBuy
	}

	return PurchaseTypeSell
}

// Validate checks the structural fields of the plan. Broker-level rules
// (positive quantity, protective levels, venue precision) layer on top in
// the broker package.
func (p *TradePlan) Validate() error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidTradePlan, "invalid trade plan", err)
	}

	return nil
}
