// Package repository implements persistence for users, events and the
// registration ledger on top of gorm.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyRegistered is returned when a ledger insert hits one of the
// registration unique indexes.
var ErrAlreadyRegistered = errors.New("registration already exists for this event")

// ErrEmailTaken is returned when an account email is already in use.
var ErrEmailTaken = errors.New("email already in use")

const pgUniqueViolation = "23505"

// isUniqueViolation recognises unique index violations from every driver we
// run on, whether or not gorm's error translation is enabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
