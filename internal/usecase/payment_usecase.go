package usecase

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"fmbq-backend/internal/domain"
)

// ProofStorage stores payment-proof uploads. Satisfied by storage.R2Storage.
type ProofStorage interface {
	UploadPaymentProof(ctx context.Context, orderID string, file multipart.File, fileHeader *multipart.FileHeader) (string, error)
}

type PaymentUsecase struct {
	orderRepo    domain.OrderRepository
	notifRepo    domain.NotificationRepository
	txManager    domain.TransactionManager
	storage      ProofStorage
	publisher    domain.EventPublisher
	eventChannel string
}

func NewPaymentUsecase(
	orderRepo domain.OrderRepository,
	notifRepo domain.NotificationRepository,
	txManager domain.TransactionManager,
	storage ProofStorage,
	publisher domain.EventPublisher,
	eventChannel string,
) *PaymentUsecase {
	return &PaymentUsecase{
		orderRepo:    orderRepo,
		notifRepo:    notifRepo,
		txManager:    txManager,
		storage:      storage,
		publisher:    publisher,
		eventChannel: eventChannel,
	}
}

// UploadProof attaches a payment-proof image to the customer's own order and
// resets its verification to pending review.
func (u *PaymentUsecase) UploadProof(ctx context.Context, userID, orderID string, file multipart.File, header *multipart.FileHeader, details domain.JSONB) (*domain.Order, error) {
	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domain.ErrForbidden
	}
	if order.PaymentVerification.Status == domain.PaymentVerificationVerified {
		return nil, fmt.Errorf("%w: payment already verified", domain.ErrValidation)
	}

	imageURL, err := u.storage.UploadPaymentProof(ctx, order.OrderID, file, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.SetPaymentProof(txCtx, orderID, imageURL, details); err != nil {
			return err
		}
		return u.orderRepo.AppendTracking(txCtx, &domain.TrackingEntry{
			OrderID:     orderID,
			Status:      order.Status,
			Description: "Payment proof submitted, awaiting review",
			UpdatedBy:   &userID,
		})
	})
	if err != nil {
		return nil, err
	}

	order.PaymentVerification.Image = &imageURL
	order.PaymentVerification.Status = domain.PaymentVerificationPending
	order.PaymentVerification.TransactionDetails = details
	return order, nil
}

// VerifyPayment records the admin's review outcome. A verified payment on an
// order awaiting verification cascades the status to processing in the same
// transaction, with one timeline entry for the review and one for the status
// change. A rejection leaves the status untouched; the reason goes to the
// timeline and the customer is notified either way.
func (u *PaymentUsecase) VerifyPayment(ctx context.Context, orderID, outcome, note, actorID string) (*domain.Order, error) {
	if outcome != domain.PaymentVerificationVerified && outcome != domain.PaymentVerificationRejected {
		return nil, fmt.Errorf("%w: outcome must be verified or rejected", domain.ErrValidation)
	}

	order, err := u.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentVerification.Status != domain.PaymentVerificationPending {
		return nil, fmt.Errorf("%w: payment already reviewed (%s)", domain.ErrValidation, order.PaymentVerification.Status)
	}

	now := time.Now()
	pv := order.PaymentVerification
	pv.Status = outcome
	pv.ReviewedBy = &actorID
	pv.ReviewedAt = &now

	current := order.Status
	cascade := outcome == domain.PaymentVerificationVerified && current == domain.OrderStatusPendingVerification

	err = u.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := u.orderRepo.UpdatePaymentVerification(txCtx, orderID, &pv); err != nil {
			return err
		}

		if outcome == domain.PaymentVerificationVerified {
			if err := u.orderRepo.AppendTracking(txCtx, &domain.TrackingEntry{
				OrderID:     orderID,
				Status:      current,
				Description: "Payment verified",
				UpdatedBy:   &actorID,
			}); err != nil {
				return err
			}
		} else {
			reason := "Payment rejected"
			if note != "" {
				reason = "Payment rejected: " + note
			}
			if err := u.orderRepo.AppendTracking(txCtx, &domain.TrackingEntry{
				OrderID:     orderID,
				Status:      current,
				Description: reason,
				UpdatedBy:   &actorID,
			}); err != nil {
				return err
			}
		}

		if cascade {
			if err := u.orderRepo.UpdateStatusIfCurrent(txCtx, orderID, current, domain.OrderStatusProcessing); err != nil {
				return err
			}
			if err := u.orderRepo.AppendTracking(txCtx, &domain.TrackingEntry{
				OrderID:     orderID,
				Status:      domain.OrderStatusProcessing,
				Description: statusDescriptions[domain.OrderStatusProcessing],
				UpdatedBy:   &actorID,
			}); err != nil {
				return err
			}
			if err := u.orderRepo.CreateStatusHistory(txCtx, &domain.StatusHistoryEntry{
				OrderID:        orderID,
				PreviousStatus: &current,
				NewStatus:      domain.OrderStatusProcessing,
				Note:           strPtrOrNil("Payment verified"),
				ChangedBy:      &actorID,
			}); err != nil {
				return err
			}
		}

		title := "Payment verified"
		body := fmt.Sprintf("Payment for order %s has been confirmed.", order.OrderID)
		if outcome == domain.PaymentVerificationRejected {
			title = "Payment issue"
			body = fmt.Sprintf("Payment for order %s could not be verified. Please contact support.", order.OrderID)
		}
		return u.notifRepo.Enqueue(txCtx, &domain.OutboxEvent{
			OrderID: &order.ID,
			UserID:  &order.UserID,
			Title:   title,
			Body:    body,
			Data:    domain.JSONB{"orderId": order.OrderID, "paymentStatus": outcome},
		})
	})
	if err != nil {
		return nil, err
	}

	order.PaymentVerification = pv
	if cascade {
		order.Status = domain.OrderStatusProcessing
		u.publish(ctx, order, "payment_reviewed")
	}
	return order, nil
}

func (u *PaymentUsecase) publish(ctx context.Context, order *domain.Order, eventType string) {
	publishOrderEvent(ctx, u.publisher, u.eventChannel, OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		PublicID:  order.OrderID,
		UserID:    order.UserID,
		Status:    order.Status,
		Timestamp: time.Now(),
	})
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
