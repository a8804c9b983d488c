package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"vyre/backend/internal/platform/respond"
	"vyre/backend/internal/security"
	userdomain "vyre/backend/internal/user/domain"
)

const bearerPrefix = "bearer "

var (
	// ErrMissingOrMalformedToken is returned when the Authorization header is absent or not a Bearer token.
	ErrMissingOrMalformedToken = errors.New("missing or malformed bearer token")
	// ErrUnknownUser is returned when a validly signed token names a user that no longer exists or is inactive.
	ErrUnknownUser = fmt.Errorf("%w: user not found", security.ErrInvalidToken)
)

// UserLookup resolves the user named by an access token.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// Authenticator validates access tokens and resolves the caller.
type Authenticator struct {
	tokens *security.TokenCodec
	users  UserLookup
}

// NewAuthenticator returns an Authenticator verifying with tokens and resolving users via users.
func NewAuthenticator(tokens *security.TokenCodec, users UserLookup) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies the Bearer access token in header and returns the caller.
// Errors: ErrMissingOrMalformedToken, security.ErrTokenExpired, security.ErrInvalidToken (ErrUnknownUser
// when the user is gone), security.ErrMissingSecret, or a wrapped store failure.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Summary, error) {
	token := extractBearer(header)
	if token == "" {
		return nil, ErrMissingOrMalformedToken
	}
	claims, err := a.tokens.VerifyAccess(token)
	if err != nil {
		return nil, err
	}
	u, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, ErrUnknownUser
	}
	return &Summary{
		UserID:    u.ID,
		CompanyID: u.CompanyID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	}, nil
}

// Middleware rejects requests without a valid access token and attaches the caller Summary to the context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSummary(r.Context(), s)))
	})
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingOrMalformedToken):
		respond.Error(w, http.StatusUnauthorized, "Access denied. No token provided.")
	case errors.Is(err, security.ErrTokenExpired):
		respond.Error(w, http.StatusUnauthorized, "Token expired.")
	case errors.Is(err, ErrUnknownUser):
		respond.Error(w, http.StatusUnauthorized, "Invalid token. User not found.")
	case errors.Is(err, security.ErrInvalidToken):
		respond.Error(w, http.StatusUnauthorized, "Invalid token.")
	case errors.Is(err, security.ErrMissingSecret):
		slog.ErrorContext(r.Context(), "auth: access token secret is not configured")
		respond.Error(w, http.StatusInternalServerError, "Server configuration error")
	default:
		respond.Internal(w, r, err)
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	token := strings.TrimSpace(v[len(bearerPrefix):])
	if strings.ContainsAny(token, " \t") {
		return ""
	}
	return token
}
