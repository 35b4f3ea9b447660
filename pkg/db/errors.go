package db

import "errors"

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kv-store: key not found")
	// ErrClosed is returned by any operation on a closed store.
	ErrClosed = errors.New("kv-store: database is closed")
	// ErrNotAvailable is returned by Open when a read-only store
	// does not exist at the configured location.
	ErrNotAvailable = errors.New("kv-store: store not available")
	// ErrBatchDone is returned when reusing a committed batch.
	ErrBatchDone = errors.New("kv-store: batch already committed")
	// ErrIteratorInvalid is returned when reading an un-positioned iterator.
	ErrIteratorInvalid = errors.New("kv-store: iterator is invalid")
)
