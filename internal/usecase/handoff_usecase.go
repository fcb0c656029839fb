package usecase

import (
	"context"
	"fmt"
	"time"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/utils"
)

// HandoffUsecase covers the QR-based delivery hand-off: hash generation for
// the printable label and the scan that advances the order one hop.
type HandoffUsecase struct {
	orderRepo    domain.OrderRepository
	notifRepo    domain.NotificationRepository
	txManager    domain.TransactionManager
	publisher    domain.EventPublisher
	eventChannel string
}

func NewHandoffUsecase(
	orderRepo domain.OrderRepository,
	notifRepo domain.NotificationRepository,
	txManager domain.TransactionManager,
	publisher domain.EventPublisher,
	eventChannel string,
) *HandoffUsecase {
	return &HandoffUsecase{
		orderRepo:    orderRepo,
		notifRepo:    notifRepo,
		txManager:    txManager,
		publisher:    publisher,
		eventChannel: eventChannel,
	}
}

// QRPayload is what gets encoded into the label printed on the package.
type QRPayload struct {
	OrderID string `json:"orderId"`
	Hash    string `json:"hash"`
}

// GetQRPayload returns the deterministic hand-off code for an order. Only
// staff see this; the hash never travels to the customer.
func (u *HandoffUsecase) GetQRPayload(ctx context.Context, id string) (*QRPayload, error) {
	order, err := u.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	hash, err := utils.GenerateQRHash(order.OrderID)
	if err != nil {
		return nil, err
	}
	return &QRPayload{
		OrderID: order.OrderID,
		Hash:    hash,
	}, nil
}

// Scan verifies a hand-off code and advances the order exactly one hop along
// the delivery path. Fails closed: a bad hash, an unknown order, or a status
// outside the delivery path all leave the order untouched.
func (u *HandoffUsecase) Scan(ctx context.Context, publicOrderID, suppliedHash, location, delivererID string) (*domain.Order, error) {
	if !utils.VerifyQRHash(publicOrderID, suppliedHash) {
		return nil, fmt.Errorf("%w: hand-off code mismatch", domain.ErrUnauthorized)
	}

	order, err := u.orderRepo.GetByOrderID(ctx, publicOrderID)
	if err != nil {
		return nil, err
	}

	current := order.Status
	next, ok := domain.DeliveryScanNext[current]
	if !ok {
		return nil, fmt.Errorf("%w: order is %s, not scannable", domain.ErrInvalidTransition, current)
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.UpdateStatusIfCurrent(txCtx, order.ID, current, next); err != nil {
			return err
		}

		if err := u.orderRepo.AppendTracking(txCtx, &domain.TrackingEntry{
			OrderID:     order.ID,
			Status:      next,
			Description: statusDescriptions[next],
			Location:    location,
			UpdatedBy:   &delivererID,
		}); err != nil {
			return err
		}

		if err := u.orderRepo.CreateStatusHistory(txCtx, &domain.StatusHistoryEntry{
			OrderID:        order.ID,
			PreviousStatus: &current,
			NewStatus:      next,
			Note:           strPtrOrNil("Hand-off scan"),
			ChangedBy:      &delivererID,
		}); err != nil {
			return err
		}

		return u.notifRepo.Enqueue(txCtx, &domain.OutboxEvent{
			OrderID: &order.ID,
			UserID:  &order.UserID,
			Title:   "Order update",
			Body:    fmt.Sprintf("Order %s: %s", order.OrderID, statusDescriptions[next]),
			Data:    domain.JSONB{"orderId": order.OrderID, "status": next},
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = next
	publishOrderEvent(ctx, u.publisher, u.eventChannel, OrderEvent{
		Type:      "status_changed",
		OrderID:   order.ID,
		PublicID:  order.OrderID,
		UserID:    order.UserID,
		Status:    next,
		Timestamp: time.Now(),
	})
	return order, nil
}
