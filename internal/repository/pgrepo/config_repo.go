package pgrepo

import (
	"context"

	"fmbq-backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type configRepository struct {
	db *pgxpool.Pool
}

func NewConfigRepository(db *pgxpool.Pool) domain.ConfigRepository {
	return &configRepository{db: db}
}

func (r *configRepository) GetActiveShippingZones(ctx context.Context) ([]domain.ShippingZone, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx, `
		SELECT id, key, label, cost, is_active, created_at, updated_at
		FROM shipping_zones
		WHERE is_active = true
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.ShippingZone
	for rows.Next() {
		var z domain.ShippingZone
		if err := rows.Scan(&z.ID, &z.Key, &z.Label, &z.Cost, &z.IsActive, &z.CreatedAt, &z.UpdatedAt); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func (r *configRepository) GetShippingZoneByKey(ctx context.Context, key string) (*domain.ShippingZone, error) {
	z := &domain.ShippingZone{}
	err := dbtx(ctx, r.db).QueryRow(ctx, `
		SELECT id, key, label, cost, is_active, created_at, updated_at
		FROM shipping_zones
		WHERE key = $1 AND is_active = true`,
		key,
	).Scan(&z.ID, &z.Key, &z.Label, &z.Cost, &z.IsActive, &z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return z, nil
}
