package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func validOrderRequest() OrderRequest {
	return OrderRequest{
		ProductID:     "BTC/USD",
		Side:          PurchaseTypeBuy,
		Type:          OrderTypeMarket,
		Quantity:      decimal.NewFromFloat(0.5),
		TimeInForce:   TimeInForceGTC,
		ClientOrderID: "client-1",
	}
}

func (suite *OrderTestSuite) TestValidateAccepts() {
	req := validOrderRequest()
	suite.NoError(req.Validate())
}

func (suite *OrderTestSuite) TestValidateRejectsZeroQuantity() {
	req := validOrderRequest()
	req.Quantity = decimal.Zero

	err := req.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func (suite *OrderTestSuite) TestValidateRejectsMissingSide() {
	req := validOrderRequest()
	req.Side = ""

	suite.Error(req.Validate())
}

func (suite *OrderTestSuite) TestValidateLimitRequiresPrice() {
	req := validOrderRequest()
	req.Type = OrderTypeLimit

	suite.Error(req.Validate())

	req.Limit = optional.Some(decimal.NewFromInt(50000))
	suite.NoError(req.Validate())
}

func (suite *OrderTestSuite) TestPlanSideFromDirection() {
	plan := TradePlan{
		PlanID:    NewPlanID(),
		Symbol:    "ETH/USD",
		Direction: 1,
		CreatedAt: time.Now().UTC(),
	}
	suite.Equal(PurchaseTypeBuy, plan.Side())

	plan.Direction = -1
	suite.Equal(PurchaseTypeSell, plan.Side())

	// Zero direction counts as short per the sign convention.
	plan.Direction = 0
	suite.Equal(PurchaseTypeSell, plan.Side())
}

func (suite *OrderTestSuite) TestPlanValidateRequiresSymbol() {
	plan := TradePlan{PlanID: NewPlanID()}

	err := plan.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTradePlan))
}
