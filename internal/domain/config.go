package domain

import (
	"context"
	"time"
)

// ShippingZone maps a delivery location key to its flat shipping cost.
type ShippingZone struct {
	ID        int32     `json:"id"`
	Key       string    `json:"key"` // e.g. "inside_city", "outside_city"
	Label     string    `json:"label"`
	Cost      float64   `json:"cost"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ConfigRepository interface {
	GetActiveShippingZones(ctx context.Context) ([]ShippingZone, error)
	GetShippingZoneByKey(ctx context.Context, key string) (*ShippingZone, error)
}
