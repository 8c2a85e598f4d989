package random

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

// Random provides the identifiers and secrets the server hands out.
// It can be mocked for testing.
type Random interface {
	// UUID returns a random (version 4) UUID string, used for rooms,
	// invitations and match logs
	UUID() string

	// Token returns an unguessable string starting with prefix, used for
	// bearer tokens and player session IDs
	Token(prefix string) string
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// UUID returns a new random UUID
func (r *CryptoRandom) UUID() string {
	return uuid.NewString()
}

// Token returns prefix followed by 128 random bits, base64url encoded
func (r *CryptoRandom) Token(prefix string) string {
	b := make([]byte, 16)
	// crypto/rand.Read never returns an error
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}
