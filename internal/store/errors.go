package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors for common database conditions
var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates a query was rejected by the read-only guard
	ErrForbidden = errors.New("forbidden")

	// ErrOrphanReference indicates a child entity references a session that
	// does not exist
	ErrOrphanReference = errors.New("references a non-existent session")
)

// MissingFieldError indicates a payload omitted a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// wrapDBError wraps a database error with operation context.
// It converts sql.ErrNoRows to ErrNotFound for consistent error handling.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// wrapFKError maps a foreign-key constraint failure to ErrOrphanReference so
// callers can tell a bad session_id apart from other integrity errors.
func wrapFKError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isForeignKeyErr(err) {
		return fmt.Errorf("%s: %w", op, ErrOrphanReference)
	}
	return fmt.Errorf("%s: %w", op, err)
}
