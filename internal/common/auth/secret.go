// internal/common/auth/secret.go
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
)

var (
	ErrNotConfigured = errors.New("shared secret is not configured")
	ErrMissingSecret = errors.New("shared secret missing")
	ErrInvalidSecret = errors.New("shared secret does not match")
)

// SharedSecret checks a pre-shared value such as the one carried in the
// fetch trigger's header.
type SharedSecret struct {
	digest [sha256.Size]byte
	set    bool
}

// NewSharedSecret holds secret. An empty secret rejects every caller.
func NewSharedSecret(secret string) *SharedSecret {
	if secret == "" {
		return &SharedSecret{}
	}
	return &SharedSecret{digest: sha256.Sum256([]byte(secret)), set: true}
}

// Verify compares provided with the configured secret in constant time.
func (s *SharedSecret) Verify(provided string) error {
	if s == nil || !s.set {
		return ErrNotConfigured
	}
	if provided == "" {
		return ErrMissingSecret
	}
	got := sha256.Sum256([]byte(provided))
	if subtle.ConstantTimeCompare(got[:], s.digest[:]) != 1 {
		return ErrInvalidSecret
	}
	return nil
}
