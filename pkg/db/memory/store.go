// Package memory provides a process-local backend for the cache backend
// family. All data lives in a mutex-guarded map and is lost on Close.
package memory

import (
	"bytes"
	"sort"
	"sync"

	"github.com/eigerco/ledgerstore/pkg/db"
)

type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, db.ErrClosed
	}

	value, ok := s.data[string(key)]
	if !ok {
		return nil, db.ErrNotFound
	}
	return clone(value), nil
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return db.ErrClosed
	}

	s.data[string(key)] = clone(value)
	return nil
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return db.ErrClosed
	}

	delete(s.data, string(key))
	return nil
}

func (s *Store) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, db.ErrClosed
	}

	_, ok := s.data[string(key)]
	return ok, nil
}

// NewIterator returns an iterator over a point-in-time snapshot of the
// keys in [start, end), in ascending order. A nil end means unbounded.
func (s *Store) NewIterator(start, end []byte) (db.Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, db.ErrClosed
	}

	var keys []string
	for k := range s.data {
		kb := []byte(k)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, entry{key: []byte(k), value: clone(s.data[k])})
	}
	return &Iterator{entries: entries, pos: -1}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.data = nil
	return nil
}

func clone(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
