// Package pgerr classifies PostgreSQL errors independent of the driver in use
// (lib/pq or pgx stdlib).
package pgerr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	UniqueViolation     = "23505"
	SerializationFailed = "40001"
	LockNotAvailable    = "55P03"
)

// Code returns the SQLSTATE carried by err, or "" when err is not a
// PostgreSQL error.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return Code(err) == UniqueViolation
}

// IsRetryable reports lock and serialization failures a caller may retry.
func IsRetryable(err error) bool {
	switch Code(err) {
	case SerializationFailed, LockNotAvailable:
		return true
	default:
		return false
	}
}
