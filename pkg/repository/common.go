package repository

import (
	"errors"
	"strings"
)

// ErrDuplicate signals a uniqueness-constraint violation, e.g. re-adding a
// symbol already on the user's watchlist
var ErrDuplicate = errors.New("duplicate entry")

// ErrNotFound signals that the requested row does not exist
var ErrNotFound = errors.New("not found")

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string {
	return e.err.Error()
}

func (e *criticalError) Unwrap() error {
	return e.err
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}

// isConstraintError checks if an error is a SQLite unique-constraint violation
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}
