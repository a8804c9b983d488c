package repository

import (
	"context"
	"time"

	"vyre/backend/internal/invitation/domain"
)

// Repository defines persistence for invitations.
type Repository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	// FindPending returns the unaccepted invitation with the digest that is unexpired at now, or nil.
	FindPending(ctx context.Context, tokenHash string, now time.Time) (*domain.Invitation, error)
	// MarkAccepted consumes the invitation. Reports false if it was already consumed.
	MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error)
	// DeleteExpired removes unaccepted invitations that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
