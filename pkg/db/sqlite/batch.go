package sqlite

import (
	"fmt"
	"sync/atomic"

	"github.com/eigerco/ledgerstore/pkg/db"
)

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// Batch buffers operations and applies them in one SQL transaction.
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
	b.ops = append(b.ops, batchOp{key: key, value: value})
	return nil
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return db.ErrBatchDone
	}
	b.ops = append(b.ops, batchOp{key: key, delete: true})
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

	tx, err := b.store.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for _, op := range b.ops {
		if op.delete {
			_, err = tx.Exec("DELETE FROM store WHERE key = ?", op.key)
		} else {
			_, err = tx.Exec(
				"INSERT INTO store (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
				op.key, op.value,
			)
		}
		if err != nil {
			return fmt.Errorf("apply batch op: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.done.Store(true)
	return nil
}

func (b *Batch) Close() error {
	b.done.Store(true)
	b.ops = nil
	return nil
}
