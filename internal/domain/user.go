package domain

import (
	"context"
	"time"
)

type ContextKey string

const UserContextKey ContextKey = "user"

type User struct {
	ID        string    `json:"id"` // UUID
	Email     string    `json:"email"`
	Role      string    `json:"role"` // admin | delivery | customer
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeviceToken is a push-notification token registered by a mobile client.
// A user may hold several (one per installed device).
type DeviceToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"` // ios | android
	CreatedAt time.Time `json:"createdAt"`
}

// UserRepository manages the device tokens the push fan-out resolves against.
// User rows themselves are read through SQL joins on the order queries; no
// code path loads one in isolation.
type UserRepository interface {
	SaveDeviceToken(ctx context.Context, token *DeviceToken) error
	DeleteDeviceToken(ctx context.Context, userID, token string) error
	GetDeviceTokens(ctx context.Context, userID string) ([]string, error)
	GetAllDeviceTokens(ctx context.Context) ([]string, error)
}
