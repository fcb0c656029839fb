package pgrepo

import (
	"context"

	"fmbq-backend/internal/domain"
	"fmbq-backend/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) SaveDeviceToken(ctx context.Context, token *domain.DeviceToken) error {
	if token.ID == "" {
		token.ID = utils.GenerateUUID()
	}
	// One row per token; re-registering moves it to the current user.
	return dbtx(ctx, r.db).QueryRow(ctx, `
		INSERT INTO device_tokens (id, user_id, token, platform)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
		RETURNING created_at`,
		token.ID, token.UserID, token.Token, token.Platform,
	).Scan(&token.CreatedAt)
}

func (r *userRepository) DeleteDeviceToken(ctx context.Context, userID, token string) error {
	_, err := dbtx(ctx, r.db).Exec(ctx,
		`DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`,
		userID, token)
	return err
}

func (r *userRepository) GetDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx,
		`SELECT token FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

func (r *userRepository) GetAllDeviceTokens(ctx context.Context) ([]string, error) {
	rows, err := dbtx(ctx, r.db).Query(ctx, `SELECT token FROM device_tokens`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
