package memory

import "github.com/eigerco/ledgerstore/pkg/db"

type entry struct {
	key   []byte
	value []byte
}

type Iterator struct {
	entries []entry
	pos     int
}

func (it *Iterator) Next() bool {
	if it.pos+1 >= len(it.entries) {
		it.pos = len(it.entries)
		return false
	}
	it.pos++
	return true
}

func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.entries[it.pos].key
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.Valid() {
		return nil, db.ErrIteratorInvalid
	}
	return it.entries[it.pos].value, nil
}

func (it *Iterator) Valid() bool {
	return it.pos >= 0 && it.pos < len(it.entries)
}

func (it *Iterator) Close() error {
	return nil
}
