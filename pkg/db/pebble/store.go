package pebble

import (
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/ledgerstore/pkg/db"
)

// Store is an embedded-file backend over a pebble database directory.
type Store struct {
	db     *pebble.DB
	closed bool
	mu     sync.RWMutex
}

func New(dir string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 * 1024 * 1024), // 32MB
		MemTableSize: 16 * 1024 * 1024,                  // 16MB
	}

	pdb, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: pdb}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, db.ErrClosed
	}

	value, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return db.ErrClosed
	}

	return s.db.Set(key, value, pebble.Sync)
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return db.ErrClosed
	}

	return s.db.Delete(key, pebble.Sync)
}

func (s *Store) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, db.ErrClosed
	}

	_, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
