package exchange

import (
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tide-trading/internal/types"
)

func validOrderRequest(productID string) types.OrderRequest {
	return types.OrderRequest{
		ProductID:     productID,
		Side:          types.PurchaseTypeBuy,
		Type:          types.OrderTypeMarket,
		Quantity:      decimal.NewFromFloat(0.5),
		TimeInForce:   types.TimeInForceGTC,
		ClientOrderID: "client-1",
	}
}
