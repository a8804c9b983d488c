package domain

import (
	"time"

	userdomain "vyre/backend/internal/user/domain"
)

// Invitation lets a company admin bring a new member in with a preset role.
// Only the SHA-256 digest of the invite token is stored.
type Invitation struct {
	ID         string
	CompanyID  string
	Email      string
	Role       userdomain.Role
	TokenHash  string
	InvitedBy  string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
}

// Pending reports whether the invitation can still be accepted at now.
func (i *Invitation) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
