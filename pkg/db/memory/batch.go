package memory

import (
	"sync/atomic"

	"github.com/eigerco/ledgerstore/pkg/db"
)

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch buffers writes and applies them under a single lock acquisition
// on Commit, so the batch is atomic with respect to concurrent readers.
type Batch struct {
	store *Store
	ops   []batchOp
	done  atomic.Bool
}

func (s *Store) NewBatch() db.Batch {
	return &Batch{store: s}
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	b.ops = append(b.ops, batchOp{key: clone(key), value: clone(value)})
	return nil
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	b.ops = append(b.ops, batchOp{key: clone(key), delete: true})
	return nil
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return db.ErrBatchDone
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if b.store.closed {
		return db.ErrClosed
	}

	for _, op := range b.ops {
		if op.delete {
			delete(b.store.data, string(op.key))
		} else {
			b.store.data[string(op.key)] = op.value
		}
	}
	b.done.Store(true)
	return nil
}

func (b *Batch) Close() error {
	b.done.Store(true)
	b.ops = nil
	return nil
}
