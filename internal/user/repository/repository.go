package repository

import (
	"context"
	"errors"
	"time"

	"vyre/backend/internal/user/domain"
)

// ErrEmailTaken is returned by Create when another user already has the email (case-insensitive).
var ErrEmailTaken = errors.New("email already registered")

// ListFilter narrows a company member listing.
type ListFilter struct {
	// Query matches first name, last name, email or position, case-insensitively.
	Query  string
	Limit  int
	Offset int
}

// Repository defines persistence for users. Getters return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetCredentialsByEmail and GetCredentialsByID are the only reads that load the password hash.
	GetCredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error)
	GetCredentialsByID(ctx context.Context, id string) (*domain.Credentials, error)
	// ConsumeResetToken atomically clears a matching unexpired reset digest and returns its user.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	ListByCompany(ctx context.Context, companyID string, f ListFilter) ([]*domain.User, int, error)
	CountByRole(ctx context.Context, companyID string, role domain.Role) (int, error)

	Create(ctx context.Context, u *domain.User, passwordHash string) error
	// UpdateProfile writes the self-editable profile fields. It never touches the password hash.
	UpdateProfile(ctx context.Context, u *domain.User) error
	UpdateMembership(ctx context.Context, id string, role domain.Role, department, position string) error
	// UpdatePassword sets a new hash and clears any outstanding reset token.
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	// ClearExpiredResetTokens drops reset digests that expired before now. Returns rows affected.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}
