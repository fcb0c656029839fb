package usecase

import (
	"context"
	"fmt"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/logger"
)

type NotificationUsecase struct {
	notifRepo domain.NotificationRepository
	userRepo  domain.UserRepository
	sender    domain.PushSender
}

func NewNotificationUsecase(
	notifRepo domain.NotificationRepository,
	userRepo domain.UserRepository,
	sender domain.PushSender,
) *NotificationUsecase {
	return &NotificationUsecase{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		sender:    sender,
	}
}

// Broadcast enqueues an admin announcement. Empty userIDs means every
// registered device. Delivery happens asynchronously via the dispatcher.
func (u *NotificationUsecase) Broadcast(ctx context.Context, title, message string, userIDs []string) (int, error) {
	if title == "" || message == "" {
		return 0, fmt.Errorf("%w: title and message are required", domain.ErrValidation)
	}

	if len(userIDs) == 0 {
		err := u.notifRepo.Enqueue(ctx, &domain.OutboxEvent{
			Title: title,
			Body:  message,
		})
		if err != nil {
			return 0, err
		}
		return 1, nil
	}

	for i := range userIDs {
		err := u.notifRepo.Enqueue(ctx, &domain.OutboxEvent{
			UserID: &userIDs[i],
			Title:  title,
			Body:   message,
		})
		if err != nil {
			return i, err
		}
	}
	return len(userIDs), nil
}

func (u *NotificationUsecase) ListNotifications(ctx context.Context, limit, offset int) ([]domain.Notification, int64, error) {
	if limit < 1 {
		limit = 20
	}
	return u.notifRepo.GetAllNotifications(ctx, limit, offset)
}

func (u *NotificationUsecase) RegisterDevice(ctx context.Context, token *domain.DeviceToken) error {
	if token.Token == "" {
		return fmt.Errorf("%w: token is required", domain.ErrValidation)
	}
	return u.userRepo.SaveDeviceToken(ctx, token)
}

func (u *NotificationUsecase) UnregisterDevice(ctx context.Context, userID, token string) error {
	return u.userRepo.DeleteDeviceToken(ctx, userID, token)
}

// Dispatch drains up to limit outbox events, fanning each one out to its
// recipient's devices. ClaimPending marks the rows processing before any
// push leaves, so a second dispatcher polling mid-batch cannot pick up the
// same events. Returns the number of events processed. Send failures are
// counted per event and never abort the batch.
func (u *NotificationUsecase) Dispatch(ctx context.Context, limit int) (int, error) {
	events, err := u.notifRepo.ClaimPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	log := logger.Get()
	for _, ev := range events {
		tokens, err := u.resolveTokens(ctx, ev)
		if err != nil {
			log.Error().Err(err).Int64("event_id", ev.ID).Msg("token resolution failed")
			if err := u.notifRepo.MarkFailed(ctx, ev.ID); err != nil {
				log.Error().Err(err).Int64("event_id", ev.ID).Msg("mark failed")
			}
			continue
		}

		success, failure := u.fanOut(ctx, ev, tokens)

		status := domain.NotificationStatusSent
		if len(tokens) > 0 && success == 0 {
			status = domain.NotificationStatusFailed
		}

		record := &domain.Notification{
			Title:        ev.Title,
			Message:      ev.Body,
			Status:       status,
			SuccessCount: success,
			FailureCount: failure,
			Broadcast:    ev.UserID == nil,
		}
		if ev.UserID != nil {
			record.UserIDs = []string{*ev.UserID}
		}
		if err := u.notifRepo.CreateNotification(ctx, record); err != nil {
			log.Error().Err(err).Int64("event_id", ev.ID).Msg("notification record failed")
		}

		if status == domain.NotificationStatusFailed {
			err = u.notifRepo.MarkFailed(ctx, ev.ID)
		} else {
			err = u.notifRepo.MarkDispatched(ctx, ev.ID)
		}
		if err != nil {
			log.Error().Err(err).Int64("event_id", ev.ID).Msg("outbox state update failed")
		}
	}

	return len(events), nil
}

func (u *NotificationUsecase) resolveTokens(ctx context.Context, ev domain.OutboxEvent) ([]string, error) {
	if ev.UserID == nil {
		return u.userRepo.GetAllDeviceTokens(ctx)
	}
	return u.userRepo.GetDeviceTokens(ctx, *ev.UserID)
}

func (u *NotificationUsecase) fanOut(ctx context.Context, ev domain.OutboxEvent, tokens []string) (success, failure int) {
	data := make(map[string]string, len(ev.Data))
	for k, v := range ev.Data {
		data[k] = fmt.Sprint(v)
	}

	log := logger.Get()
	for _, token := range tokens {
		ticket, err := u.sender.SendPush(ctx, token, ev.Title, ev.Body, data)
		if err != nil || ticket.Status != "ok" {
			failure++
			log.Warn().Err(err).Int64("event_id", ev.ID).Msg("push send failed")
			continue
		}
		success++
	}
	return success, failure
}
