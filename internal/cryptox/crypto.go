// Package cryptox seals values that the client keeps on disk (session tokens
// in the local SQLite store) with a key derived from a device secret.
package cryptox

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/catermarket/caterauth/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the length of the random salt stored next to sealed data.
const SaltSize = 16

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey stretches secret with Argon2id into a 32-byte key.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
}

// Sealer encrypts small values with XChaCha20-Poly1305. The random nonce is
// prepended to the ciphertext, so Seal output is self-contained.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a key from secret and salt and prepares the AEAD.
func NewSealer(secret, salt []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: empty secret", common.ErrorInvalidInput)
	}
	aead, err := chacha20poly1305.NewX(DeriveKey(secret, salt))
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext; additional binds the ciphertext to a context
// (the storage key), so values cannot be swapped between keys.
func (s *Sealer) Seal(plaintext, additional []byte) []byte {
	nonce := common.GenerateRandByteArray(s.aead.NonceSize())
	return s.aead.Seal(nonce, nonce, plaintext, additional)
}

// Open reverses Seal.
func (s *Sealer) Open(sealed, additional []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], additional)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return plaintext, nil
}
