package pgrepo

import (
	"context"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

type notificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = utils.GenerateUUID()
	}
	if n.Status == "" {
		n.Status = domain.NotificationStatusPending
	}
	return dbtx(ctx, r.db).QueryRow(ctx, `
		INSERT INTO notifications (id, title, message, status, success_count, failure_count, user_ids, broadcast)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		n.ID, n.Title, n.Message, n.Status, n.SuccessCount, n.FailureCount, n.UserIDs, n.Broadcast,
	).Scan(&n.CreatedAt)
}

func (r *notificationRepository) GetAllNotifications(ctx context.Context, limit, offset int) ([]domain.Notification, int64, error) {
	var total int64
	if err := dbtx(ctx, r.db).QueryRow(ctx, `SELECT count(*) FROM notifications`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := dbtx(ctx, r.db).Query(ctx, `
		SELECT id, title, message, status, success_count, failure_count, user_ids, broadcast, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Status, &n.SuccessCount,
			&n.FailureCount, &n.UserIDs, &n.Broadcast, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		list = append(list, n)
	}
	return list, total, rows.Err()
}

func (r *notificationRepository) Enqueue(ctx context.Context, ev *domain.OutboxEvent) error {
	if ev.Status == "" {
		ev.Status = domain.NotificationStatusPending
	}
	return dbtx(ctx, r.db).QueryRow(ctx, `
		INSERT INTO notification_outbox (order_id, user_id, title, body, data, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		ev.OrderID, ev.UserID, ev.Title, ev.Body, ev.Data, ev.Status,
	).Scan(&ev.ID, &ev.CreatedAt)
}

// ClaimPending flips up to limit pending events to processing and returns
// them in the same statement. The claim is the UPDATE itself, so it holds
// even though the pool runs this outside any surrounding transaction: a
// concurrent dispatcher sees either the row lock (and skips it) or the
// already-written processing status. Rows stuck in processing past the
// stale window are reclaimed, covering a dispatcher that died mid-batch.
func (r *notificationRepository) ClaimPending(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx, `
		WITH claimable AS (
			SELECT id
			FROM notification_outbox
			WHERE status = 'pending'
			   OR (status = 'processing' AND claimed_at < now() - interval '2 minutes')
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE notification_outbox o
		SET status = 'processing', claimed_at = now()
		FROM claimable
		WHERE o.id = claimable.id
		RETURNING o.id, o.order_id, o.user_id, o.title, o.body, o.data, o.status, o.attempts, o.created_at, o.dispatched_at`,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.UserID, &ev.Title, &ev.Body,
			&ev.Data, &ev.Status, &ev.Attempts, &ev.CreatedAt, &ev.DispatchedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *notificationRepository) MarkDispatched(ctx context.Context, id int64) error {
	_, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE notification_outbox
		SET status = 'sent', attempts = attempts + 1, dispatched_at = now()
		WHERE id = $1`,
		id)
	return err
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id int64) error {
	_, err := dbtx(ctx, r.db).Exec(ctx, `
		UPDATE notification_outbox
		SET status = CASE WHEN attempts + 1 >= 5 THEN 'failed' ELSE 'pending' END,
		    attempts = attempts + 1
		WHERE id = $1`,
		id)
	return err
}
