package pgrepo

import (
	"errors"

	"fmbq-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func ptrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// mapNotFound converts pgx's no-rows sentinel to the domain error so
// usecases and handlers never see driver details.
func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// isUniqueViolation reports whether err is Postgres error 23505, the unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
