// Package seal provides the authenticated at-rest encryption capability
// for stored values. A Sealer is injected into the store session; values
// sealed with one key fail authentication when opened with another.
package seal

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the required secret key length in bytes.
const KeySize = chacha20poly1305.KeySize

var (
	// ErrOpen is returned when a ciphertext fails authentication,
	// either because it was tampered with or sealed under another key.
	ErrOpen = errors.New("seal: message authentication failed")
	// ErrKeySize is returned for keys that are not KeySize bytes long.
	ErrKeySize = errors.New("seal: invalid key size")
)

// Sealer encrypts and decrypts opaque byte blobs.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

type chachaSealer struct {
	aead cipher.AEAD
}

// New returns a Sealer using XChaCha20-Poly1305. Each Seal call draws a
// fresh random nonce, so identical plaintexts produce distinct
// ciphertexts. The nonce is prepended to the sealed output.
func New(key []byte) (Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeySize, len(key), KeySize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return &chachaSealer{aead: aead}, nil
}

// GenerateKey returns a new random secret key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func (s *chachaSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *chachaSealer) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < s.aead.NonceSize() {
		return nil, ErrOpen
	}
	nonce, sealed := ciphertext[:s.aead.NonceSize()], ciphertext[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
