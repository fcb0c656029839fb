package domain

import (
	"context"
	"time"
)

// Notification is the fire-and-forget log of one push batch.
type Notification struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Status       string    `json:"status"` // pending | scheduled | sent | failed
	SuccessCount int       `json:"successCount"`
	FailureCount int       `json:"failureCount"`
	UserIDs      []string  `json:"userIds,omitempty"`
	Broadcast    bool      `json:"broadcast"`
	CreatedAt    time.Time `json:"createdAt"`
}

// OutboxEvent is a pending notification enqueued in the same transaction as
// the state change that produced it. The dispatcher drains these; delivery
// failures never unwind the committed mutation.
type OutboxEvent struct {
	ID           int64      `json:"id"`
	OrderID      *string    `json:"orderId,omitempty"`
	UserID       *string    `json:"userId,omitempty"` // nil means broadcast
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Data         JSONB      `json:"data,omitempty"`
	Status       string     `json:"status"` // pending | processing | sent | failed
	Attempts     int        `json:"attempts"`
	CreatedAt    time.Time  `json:"createdAt"`
	DispatchedAt *time.Time `json:"dispatchedAt,omitempty"`
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetAllNotifications(ctx context.Context, limit, offset int) ([]Notification, int64, error)

	// Outbox. ClaimPending atomically moves up to limit events from pending
	// to processing and returns them; a claimed event is invisible to other
	// dispatcher instances until MarkDispatched or MarkFailed resolves it.
	Enqueue(ctx context.Context, ev *OutboxEvent) error
	ClaimPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkDispatched(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
}

// PushTicket is the provider's receipt for one push message.
type PushTicket struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok | error
	Detail string `json:"detail,omitempty"`
}

// PushSender delivers a push notification to a device token. Best-effort:
// callers count successes and failures but never treat a send error as fatal
// to the operation that triggered it.
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) (*PushTicket, error)
}
