package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/drygo/backend/internal/domain/order"
)

// Nop logs instead of sending. Used when Twilio credentials are absent.
type Nop struct{}

func (Nop) OrderCreated(ctx context.Context, o *order.Order) error {
	zctx.From(ctx).Info("Order notification skipped, messaging is not configured",
		zap.String("order_number", o.OrderNumber),
	)
	return nil
}
