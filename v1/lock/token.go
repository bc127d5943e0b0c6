package lock

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// TokenSource produces the opaque ownership tokens that prove a caller holds
// a lock. Tokens must be unpredictable and collision-resistant; deterministic
// sources belong in tests only.
type TokenSource interface {
	Token() (string, error)
}

// RandomTokens sources tokens from crypto/rand, rendered as hex. Bytes is the
// entropy size; zero or negative means 16 bytes (128 bits, 32 hex characters).
type RandomTokens struct {
	Bytes int
}

// Token implements TokenSource.
func (r RandomTokens) Token() (string, error) {
	n := r.Bytes
	if n <= 0 {
		n = 16
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// UUIDTokens sources tokens from random (version 4) UUIDs. UUIDs carry 122
// bits of entropy; prefer RandomTokens where a full 128 bits is required.
type UUIDTokens struct{}

// Token implements TokenSource.
func (UUIDTokens) Token() (string, error) {
	return uuid.NewString(), nil
}
