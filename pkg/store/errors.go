package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports an absent key, series or dictionary where
	// presence was required. It is a normal outcome for query calls
	// and is distinguishable from backend failures.
	ErrNotFound = errors.New("store: not found")
	// ErrDecode reports an authentication failure or malformed bytes
	// on read. Decode failures are never retried.
	ErrDecode = errors.New("store: cannot decode value")
	// ErrInvalidOperator reports an unrecognized or malformed event
	// operator.
	ErrInvalidOperator = errors.New("store: invalid operator")
	// ErrFrozen reports a mutating call on a read-only session.
	ErrFrozen = errors.New("store: frozen store")
	// ErrConflict reports an apply at a timestamp that already holds
	// events for the dictionary.
	ErrConflict = errors.New("store: timestamp already written")
	// ErrClosed reports a call on a closed session.
	ErrClosed = errors.New("store: session is closed")
)

// BackendError wraps any failure surfaced by the physical backend. The
// original failure is retrievable through errors.Unwrap.
type BackendError struct {
	Op  string
	Key string
	Err error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store: backend %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: backend %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(op, key string, err error) error {
	return &BackendError{Op: op, Key: key, Err: err}
}
