package store

import (
	"errors"
	"fmt"
	"strings"
)

// Every error returned by Store wraps exactly one of these.
var (
	ErrInit  = errors.New("storage init failed")
	ErrWrite = errors.New("storage write failed")
	ErrRead  = errors.New("storage read failed")
)

// ErrNotFound is wrapped alongside ErrWrite when a delete matched no row.
var ErrNotFound = errors.New("record not found")

func initErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w%s", ErrInit, op, err, hint(err))
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w%s", ErrWrite, op, err, hint(err))
}

func readErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w%s", ErrRead, op, err, hint(err))
}

func hint(err error) string {
	if IsConflict(err) {
		return " (database is in use by another process)"
	}
	return ""
}

// IsBusy reports a SQLITE_BUSY error.
func IsBusy(err error) bool {
	return err != nil && strings.Contains(err.Error(), "SQLITE_BUSY")
}

// IsLocked reports a "database is locked" error.
func IsLocked(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// IsConflict reports either form of SQLite lock contention.
func IsConflict(err error) bool {
	return IsBusy(err) || IsLocked(err)
}
