// Package dsn selects and opens a physical backend from a single
// configuration string.
//
// Supported schemes:
//
//	pebble://<directory>  embedded pebble database
//	sqlite://<file>       relational sqlite database
//	memory://             process-local in-memory store
package dsn

import (
	"fmt"
	"os"
	"strings"

	"github.com/eigerco/ledgerstore/pkg/db"
	"github.com/eigerco/ledgerstore/pkg/db/memory"
	"github.com/eigerco/ledgerstore/pkg/db/pebble"
	"github.com/eigerco/ledgerstore/pkg/db/sqlite"
)

// Open dispatches on the DSN scheme and opens the backend. In read-only
// mode a file-backed store must already exist; opening a missing one
// fails with db.ErrNotAvailable instead of creating it.
func Open(rawDSN string, readOnly bool) (db.KVStore, error) {
	scheme, rest, ok := strings.Cut(rawDSN, "://")
	if !ok {
		return nil, fmt.Errorf("invalid dsn %q: missing scheme", rawDSN)
	}

	switch scheme {
	case "pebble":
		if readOnly {
			if err := requirePath(rest); err != nil {
				return nil, err
			}
		}
		return pebble.New(rest)
	case "sqlite":
		if readOnly {
			if err := requirePath(rest); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(rest)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("invalid dsn %q: unknown scheme %q", rawDSN, scheme)
	}
}

func requirePath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s", db.ErrNotAvailable, path)
	}
	return nil
}
