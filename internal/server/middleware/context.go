package middleware

import (
	"context"

	userdomain "vyre/backend/internal/user/domain"
)

// Summary is the authenticated caller attached to a request. It never carries the password hash or sessions.
type Summary struct {
	UserID    string
	CompanyID string
	Email     string
	FirstName string
	LastName  string
	Role      userdomain.Role
}

type contextKey struct{ name string }

var (
	summaryKey  = contextKey{"summary"}
	clientIPKey = contextKey{"client_ip"}
)

// WithSummary returns a context carrying s. Handlers read it via SummaryFrom.
func WithSummary(ctx context.Context, s *Summary) context.Context {
	return context.WithValue(ctx, summaryKey, s)
}

// SummaryFrom returns the authenticated caller and true if set; otherwise nil, false.
func SummaryFrom(ctx context.Context) (*Summary, bool) {
	s, ok := ctx.Value(summaryKey).(*Summary)
	return s, ok && s != nil
}

// WithClientIP returns a context carrying the resolved client address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFrom returns the client address set by ClientIP, or "".
func ClientIPFrom(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}
