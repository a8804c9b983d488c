package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// HashToken returns a SHA-256 hash of the token string, hex-encoded.
// Refresh, invitation and password-reset tokens are stored and looked up by this digest, never raw.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// NewOpaqueToken returns 32 random bytes hex-encoded, for single-use links (invites, password reset).
func NewOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
