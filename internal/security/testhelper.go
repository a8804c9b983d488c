package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-fedcba9876543210"
	testIssuer        = "test-issuer"
)

// NewTestTokenCodec returns a TokenCodec using fixed test secrets, a 15 minute
// access lifetime and a 24 hour refresh lifetime. For unit tests only.
func NewTestTokenCodec() *TokenCodec {
	return NewTokenCodec([]byte(testAccessSecret), []byte(testRefreshSecret), testIssuer, 15*time.Minute, 24*time.Hour)
}
