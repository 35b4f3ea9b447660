package store

import (
	"errors"
	"fmt"
	"path"

	"github.com/eigerco/ledgerstore/pkg/db"
)

// Set stores a value under a logical key, overwriting any prior value.
func (s *Store) Set(key string, value any) error {
	if err := s.writable(); err != nil {
		return err
	}

	data, err := s.encodeValue(value)
	if err != nil {
		return err
	}
	if err := s.backend.Put(s.physicalKey(tagKV, key), data); err != nil {
		return backendErr("put", key, err)
	}
	return nil
}

// Get returns the value stored under a logical key. Returns ErrNotFound
// when the key is absent, ErrDecode when the stored bytes cannot be
// authenticated or deserialized.
func (s *Store) Get(key string) (any, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}

	data, err := s.backend.Get(s.physicalKey(tagKV, key))
	if err != nil {
		if isBackendNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, backendErr("get", key, err)
	}
	return s.decodeValue(data)
}

// Delete removes a logical key. Returns ErrNotFound when absent.
func (s *Store) Delete(key string) error {
	if err := s.writable(); err != nil {
		return err
	}

	physical := s.physicalKey(tagKV, key)
	ok, err := s.backend.Has(physical)
	if err != nil {
		return backendErr("has", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	if err := s.backend.Delete(physical); err != nil {
		return backendErr("delete", key, err)
	}
	return nil
}

// Has reports whether a logical key is present.
func (s *Store) Has(key string) (bool, error) {
	if err := s.readable(); err != nil {
		return false, err
	}

	ok, err := s.backend.Has(s.physicalKey(tagKV, key))
	if err != nil {
		return false, backendErr("has", key, err)
	}
	return ok, nil
}

// Keys lists every key/value entry in the namespace, in ascending order.
func (s *Store) Keys() ([]string, error) {
	if err := s.readable(); err != nil {
		return nil, err
	}
	return s.scanLogicalKeys(tagKV)
}

// Len returns the number of key/value entries in the namespace.
func (s *Store) Len() (int, error) {
	keys, err := s.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Entry is one (key, value) pair returned by Find.
type Entry struct {
	Key   string
	Value any
}

// Find returns the entries whose keys match the shell-style pattern
// ('*' and '?' wildcards, path.Match syntax). An empty pattern matches
// every key.
func (s *Store) Find(pattern string) ([]Entry, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}

	var found []Entry
	for _, key := range keys {
		if pattern != "" {
			ok, err := path.Match(pattern, key)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		value, err := s.Get(key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		found = append(found, Entry{Key: key, Value: value})
	}
	return found, nil
}

func isBackendNotFound(err error) bool {
	return errors.Is(err, db.ErrNotFound)
}
