package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed, of the wrong kind, or otherwise invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a well-signed token is past its exp claim.
	ErrTokenExpired = errors.New("token expired")
	// ErrMissingSecret is returned when the signing key for a token kind is not configured.
	// It signals a broken deployment and must not be reported as an invalid token.
	ErrMissingSecret = errors.New("token signing secret is not configured")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// AccessClaims holds JWT claims for the access token. Subject is the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Type      string `json:"typ"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// RefreshClaims holds JWT claims for the refresh token. Subject is the user id.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// AccessSubject is the identity data embedded in an access token.
type AccessSubject struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// TokenCodec issues and verifies HS256 access and refresh tokens. Each kind has
// its own secret and is only ever verified against that secret.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenCodec returns a TokenCodec. Empty secrets are accepted here but make
// every Issue/Verify call for that kind fail with ErrMissingSecret.
func NewTokenCodec(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock returns a copy of the codec that reads the current time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token for sub and returns it with its expiry.
func (c *TokenCodec) IssueAccess(sub AccessSubject) (string, time.Time, error) {
	if len(c.accessSecret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	rc, err := c.registered(sub.UserID, c.accessTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	claims := AccessClaims{
		RegisteredClaims: rc,
		Type:             typeAccess,
		Email:            sub.Email,
		FirstName:        sub.FirstName,
		LastName:         sub.LastName,
		Role:             sub.Role,
	}
	return c.sign(claims, c.accessSecret)
}

// IssueRefresh signs a long-lived refresh token for userID and returns it with its expiry.
// The caller must persist it as a session for it to be honoured.
func (c *TokenCodec) IssueRefresh(userID string) (string, time.Time, error) {
	if len(c.refreshSecret) == 0 {
		return "", time.Time{}, ErrMissingSecret
	}
	rc, err := c.registered(userID, c.refreshTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return c.sign(RefreshClaims{RegisteredClaims: rc, Type: typeRefresh}, c.refreshSecret)
}

func (c *TokenCodec) registered(subject string, ttl time.Duration) (jwt.RegisteredClaims, error) {
	jti, err := generateJTI()
	if err != nil {
		return jwt.RegisteredClaims{}, err
	}
	now := c.now().UTC()
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}, nil
}

func (c *TokenCodec) sign(claims jwt.Claims, secret []byte) (string, time.Time, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	// Read the expiry back from what was actually signed.
	decoded, err := DecodeUnverified(token)
	if err != nil || decoded.ExpiresAt == nil {
		return "", time.Time{}, fmt.Errorf("security: decode signed token: %w", err)
	}
	return token, decoded.ExpiresAt.Time, nil
}

// VerifyAccess validates signature, expiry, issuer and kind of an access token.
func (c *TokenCodec) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(tokenString, c.accessSecret, claims); err != nil {
		return nil, err
	}
	if claims.Type != typeAccess || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates signature, expiry, issuer and kind of a refresh token.
// A valid result does not mean the session is still live; the store decides that.
func (c *TokenCodec) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(tokenString, c.refreshSecret, claims); err != nil {
		return nil, err
	}
	if claims.Type != typeRefresh || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) verify(tokenString string, secret []byte, claims jwt.Claims) error {
	if len(secret) == 0 {
		return ErrMissingSecret
	}
	if tokenString == "" {
		return ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// DecodeUnverified reads the registered claims of a token without checking its
// signature. Only use it on tokens whose origin is already trusted.
func DecodeUnverified(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
