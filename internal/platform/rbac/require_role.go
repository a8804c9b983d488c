package rbac

import (
	"context"
	"errors"
	"net/http"

	"vyre/backend/internal/platform/respond"
	"vyre/backend/internal/server/middleware"
	userdomain "vyre/backend/internal/user/domain"
)

var (
	// ErrUnauthenticated is returned when no authenticated caller is present.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller's role is not permitted.
	ErrForbidden = errors.New("forbidden")
)

// RequireRole returns nil if s holds one of roles. An empty roles list admits any authenticated caller.
func RequireRole(s *middleware.Summary, roles ...userdomain.Role) error {
	if s == nil || s.UserID == "" {
		return ErrUnauthenticated
	}
	if len(roles) == 0 {
		return nil
	}
	for _, r := range roles {
		if s.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// Caller returns the authenticated caller from ctx after checking it against roles.
func Caller(ctx context.Context, roles ...userdomain.Role) (*middleware.Summary, error) {
	s, _ := middleware.SummaryFrom(ctx)
	if err := RequireRole(s, roles...); err != nil {
		return nil, err
	}
	return s, nil
}

// Require is HTTP middleware admitting only callers holding one of roles. It must run after
// Authenticator.Middleware.
func Require(roles ...userdomain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := Caller(r.Context(), roles...); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes the response for an error returned by RequireRole or Caller.
func WriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnauthenticated) {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized. Authentication required.")
		return
	}
	respond.Error(w, http.StatusForbidden, "Forbidden. You do not have permission to access this resource.")
}
