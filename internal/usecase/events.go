package usecase

import (
	"context"
	"time"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/logger"
)

// OrderEvent is the payload broadcast on the realtime channel after a
// committed order mutation.
type OrderEvent struct {
	Type      string    `json:"type"` // order_created | status_changed | payment_reviewed
	OrderID   string    `json:"orderId"`
	PublicID  string    `json:"publicId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// statusDescriptions are the default timeline texts when no note is supplied.
var statusDescriptions = map[string]string{
	"pending_verification": "Order placed, awaiting payment verification",
	"pending":              "Order placed",
	"processing":           "Order confirmed and being prepared",
	"picked":               "Package picked up by delivery",
	"on_the_way":           "Package is on the way",
	"shipped":              "Package handed to courier",
	"delivered":            "Package delivered",
	"completed":            "Order completed",
	"cancelled":            "Order cancelled",
}

// publishOrderEvent is the one publish path for every usecase. Best-effort: a
// dead realtime channel is logged and never fails the committed mutation.
func publishOrderEvent(ctx context.Context, pub domain.EventPublisher, channel string, ev OrderEvent) {
	if err := pub.Publish(ctx, channel, ev); err != nil {
		logger.Get().Warn().Err(err).
			Str("order_id", ev.OrderID).
			Str("type", ev.Type).
			Msg("event publish failed")
	}
}
