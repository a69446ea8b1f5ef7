package execution

import (
	"context"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// VenueOrderClient places, cancels, and polls the status of signed orders on
// one venue's REST API. Both PlaceOrder and CancelOrder are idempotent on
// OrderHash/OrderID so a retried submit after a timeout never double-sends.
type VenueOrderClient interface {
	PlaceOrder(ctx context.Context, env *types.SignedOrderEnvelope) (*types.OpenOrder, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderStatus(ctx context.Context, orderID string) (*types.OpenOrder, error)
}
