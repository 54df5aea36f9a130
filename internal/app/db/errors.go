package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert collides with a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// IsUniqueViolation checks if the error is a PostgreSQL unique constraint violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsInvalidText checks if the error is a PostgreSQL invalid text representation (code 22P02),
// which is what a malformed UUID parameter produces.
func IsInvalidText(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}

// Translate maps driver errors to the package sentinels. Unknown errors are returned as is.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows), IsInvalidText(err):
		return ErrNotFound
	case IsUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}
