package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32   // Salt size in bytes
	KeySize      = 32   // AES-256 key-encryption key size
	DefaultIters = 4096 // PBKDF2 iterations for new envelopes
)

// KDF handles key derivation from passwords
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a salt read from r, or crypto/rand when r is nil
func NewKDF(r io.Reader) (*KDF, error) {
	if r == nil {
		r = rand.Reader
	}
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// DeriveKey derives a key-encryption key from a password
func (k *KDF) DeriveKey(password []byte) []byte {
	return DeriveKey(password, k.Salt, k.Iterations)
}

// DeriveKey runs PBKDF2-HMAC-SHA512 and returns a KeySize-byte key.
// iterations is not capped here; callers reading it from untrusted input
// must apply their own limit.
func DeriveKey(password, salt []byte, iterations int) []byte {
	return pbkdf2.Key(password, salt, iterations, KeySize, sha512.New)
}
