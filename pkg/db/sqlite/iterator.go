package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/eigerco/ledgerstore/pkg/db"
)

// Iterator streams rows of an ordered range query. The underlying rows
// are held open until Close, so iterators should be short-lived.
type Iterator struct {
	rows  *sql.Rows
	key   []byte
	value []byte
	valid bool
}

func (s *Store) NewIterator(start, end []byte) (db.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, db.ErrClosed
	}

	query := "SELECT key, value FROM store"
	var args []any
	switch {
	case start != nil && end != nil:
		query += " WHERE key >= ? AND key < ?"
		args = []any{start, end}
	case start != nil:
		query += " WHERE key >= ?"
		args = []any{start}
	case end != nil:
		query += " WHERE key < ?"
		args = []any{end}
	}
	query += " ORDER BY key ASC"

	rows, err := s.sqlDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	return &Iterator{rows: rows}, nil
}

func (it *Iterator) Next() bool {
	if !it.rows.Next() {
		it.valid = false
		return false
	}
	if err := it.rows.Scan(&it.key, &it.value); err != nil {
		it.valid = false
		return false
	}
	it.valid = true
	return true
}

func (it *Iterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return it.key
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.valid {
		return nil, db.ErrIteratorInvalid
	}
	return it.value, nil
}

func (it *Iterator) Valid() bool {
	return it.valid
}

func (it *Iterator) Close() error {
	return it.rows.Close()
}
