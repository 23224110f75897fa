package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to the types.Err* sentinel the caller asked for.
func wrapDBError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure, the shape both the ncruces driver and mattn/go-sqlite3 surface
// as a plain string match on the driver error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
