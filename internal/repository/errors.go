package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by single-record lookups. Updates and deletes of a
// missing record are no-ops and never return it.
var ErrNotFound = errors.New("record not found")

// StoreReadError wraps a failed read of a table. Callers degrade it to an
// empty result.
type StoreReadError struct {
	Table string
	Err   error
}

func (e *StoreReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Table, e.Err)
}

func (e *StoreReadError) Unwrap() error { return e.Err }

// StoreWriteError wraps a failed append, update or delete. It is surfaced to
// the caller, which rolls back any optimistic state.
type StoreWriteError struct {
	Table string
	Op    string
	Err   error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// IsWriteError reports whether err carries a StoreWriteError.
func IsWriteError(err error) bool {
	var we *StoreWriteError
	return errors.As(err, &we)
}

// IsReadError reports whether err carries a StoreReadError.
func IsReadError(err error) bool {
	var re *StoreReadError
	return errors.As(err, &re)
}
