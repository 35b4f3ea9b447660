// Package store implements a namespaced, multi-model persistence facade
// over a physical key-value backend: plain key/value pairs, append-only
// time series and event-sourced dictionaries, with optional per-value
// authenticated encryption and pluggable serialization.
//
// A Store is a session: it binds a namespace, a backend connection, a
// codec configuration and a mutability flag. Sessions are frozen
// (read-only) unless opened with ReadWrite; every mutating call on a
// frozen session fails fast without contacting the backend. Sessions own
// their backend connection and must be released with Close.
package store

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/eigerco/ledgerstore/pkg/db"
	"github.com/eigerco/ledgerstore/pkg/db/dsn"
	"github.com/eigerco/ledgerstore/pkg/seal"
	"github.com/eigerco/ledgerstore/pkg/serialization/codec"
)

// Model tags partition the physical key space between the data models.
const (
	tagKV = "kv"
	tagTS = "ts"
	tagEV = "ev"
)

// DefaultNamespace is used when no namespace option is given.
const DefaultNamespace = "default"

// Store is a session over one physical backend. It is safe for use from
// a single goroutine; concurrent access needs one session per goroutine.
type Store struct {
	backend   db.KVStore
	namespace string
	codec     codec.Codec
	sealer    seal.Sealer
	frozen    bool
	logger    zerolog.Logger
	closed    atomic.Bool
}

type config struct {
	namespace string
	codec     codec.Codec
	sealer    seal.Sealer
	key       []byte
	frozen    bool
	logger    zerolog.Logger
}

// Option customizes a session at construction.
type Option func(*config)

// WithNamespace scopes every physical key of the session. The same
// logical key in two namespaces never collides.
func WithNamespace(namespace string) Option {
	return func(c *config) { c.namespace = namespace }
}

// WithCodec replaces the default JSON codec.
func WithCodec(cd codec.Codec) Option {
	return func(c *config) { c.codec = cd }
}

// WithEncryptionKey enables authenticated encryption of stored values
// with the given secret key (seal.KeySize bytes).
func WithEncryptionKey(key []byte) Option {
	return func(c *config) { c.key = key }
}

// WithSealer injects a custom encryption capability. Takes precedence
// over WithEncryptionKey.
func WithSealer(s seal.Sealer) Option {
	return func(c *config) { c.sealer = s }
}

// ReadWrite opens the session in mutable mode. Sessions are frozen by
// default.
func ReadWrite() Option {
	return func(c *config) { c.frozen = false }
}

// WithLogger attaches a logger to the session. The default discards
// everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Open parses the DSN, connects the backend and returns a session.
// In the default frozen mode the physical store must already exist.
func Open(rawDSN string, opts ...Option) (*Store, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	backend, err := dsn.Open(rawDSN, cfg.frozen)
	if err != nil {
		return nil, backendErr("open", "", err)
	}

	return newStore(backend, cfg), nil
}

// New wraps an already-open backend in a session. The session takes
// ownership of the backend and closes it on Close.
func New(backend db.KVStore, opts ...Option) (*Store, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newStore(backend, cfg), nil
}

func buildConfig(opts []Option) (*config, error) {
	cfg := &config{
		namespace: DefaultNamespace,
		codec:     codec.JSONCodec{},
		frozen:    true,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.namespace == "" {
		return nil, fmt.Errorf("namespace must not be empty")
	}
	if strings.Contains(cfg.namespace, ":") {
		return nil, fmt.Errorf("namespace %q must not contain ':'", cfg.namespace)
	}
	if cfg.sealer == nil && cfg.key != nil {
		sealer, err := seal.New(cfg.key)
		if err != nil {
			return nil, err
		}
		cfg.sealer = sealer
	}
	return cfg, nil
}

func newStore(backend db.KVStore, cfg *config) *Store {
	return &Store{
		backend:   backend,
		namespace: cfg.namespace,
		codec:     cfg.codec,
		sealer:    cfg.sealer,
		frozen:    cfg.frozen,
		logger:    cfg.logger.With().Str("namespace", cfg.namespace).Logger(),
	}
}

// Namespace returns the namespace the session is scoped to.
func (s *Store) Namespace() string {
	return s.namespace
}

// Frozen reports whether the session rejects mutations.
func (s *Store) Frozen() bool {
	return s.frozen
}

// Close releases the backend connection. It is idempotent.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.backend.Close(); err != nil {
		return backendErr("close", "", err)
	}
	return nil
}

// Discard deletes every physical key in the session's namespace, across
// all three data models, in one atomic batch.
func (s *Store) Discard() error {
	if err := s.writable(); err != nil {
		return err
	}

	prefix := []byte(s.namespace + ":")
	iter, err := s.backend.NewIterator(prefix, db.PrefixUpperBound(prefix))
	if err != nil {
		return backendErr("scan", s.namespace, err)
	}

	var keys [][]byte
	for iter.Next() {
		keys = append(keys, iter.Key())
	}
	if err := iter.Close(); err != nil {
		return backendErr("scan", s.namespace, err)
	}

	batch := s.backend.NewBatch()
	defer batch.Close()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return backendErr("delete", string(key), err)
		}
	}
	if err := batch.Commit(); err != nil {
		return backendErr("discard", s.namespace, err)
	}

	s.logger.Debug().Int("keys", len(keys)).Msg("namespace discarded")
	return nil
}

func (s *Store) readable() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *Store) writable() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.frozen {
		return ErrFrozen
	}
	return nil
}

func (s *Store) physicalKey(tag, logical string) []byte {
	return []byte(s.namespace + ":" + tag + ":" + logical)
}

func (s *Store) modelPrefix(tag string) []byte {
	return []byte(s.namespace + ":" + tag + ":")
}

// scanLogicalKeys lists all logical keys under one model tag, in
// ascending physical key order.
func (s *Store) scanLogicalKeys(tag string) ([]string, error) {
	prefix := s.modelPrefix(tag)
	iter, err := s.backend.NewIterator(prefix, db.PrefixUpperBound(prefix))
	if err != nil {
		return nil, backendErr("scan", string(prefix), err)
	}
	defer iter.Close()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()[len(prefix):]))
	}
	return keys, nil
}

// encodeValue runs a logical value through the codec pipeline:
// serialize, then seal when encryption is configured.
func (s *Store) encodeValue(v any) ([]byte, error) {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	if s.sealer == nil {
		return data, nil
	}
	sealed, err := s.sealer.Seal(data)
	if err != nil {
		return nil, fmt.Errorf("seal value: %w", err)
	}
	return sealed, nil
}

// decodeValue is the exact inverse of encodeValue. Authentication or
// deserialization failures surface as ErrDecode and are never retried.
func (s *Store) decodeValue(data []byte) (any, error) {
	if s.sealer != nil {
		plaintext, err := s.sealer.Open(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		data = plaintext
	}
	var v any
	if err := s.codec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return v, nil
}
