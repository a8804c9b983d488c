package repository

import (
	"context"
	"time"

	"vyre/backend/internal/session/domain"
)

// Repository defines persistence for sessions. Each call is a single statement, so
// concurrent logins and revocations of the same user never lose each other's writes.
type Repository interface {
	// Create adds a session row.
	Create(ctx context.Context, s *domain.Session) error
	// FindActive returns the user's session whose digest matches and is unexpired at now, or nil.
	FindActive(ctx context.Context, userID, tokenHash string, now time.Time) (*domain.Session, error)
	// ListActive returns the user's unexpired sessions, newest first.
	ListActive(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	// DeleteByToken removes the user's session with the digest. Reports whether a row was removed.
	DeleteByToken(ctx context.Context, userID, tokenHash string) (bool, error)
	// DeleteByID removes one of the user's sessions by id. Reports whether a row was removed.
	DeleteByID(ctx context.Context, userID, sessionID string) (bool, error)
	// DeleteAllByUser removes every session of the user and returns how many were removed.
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
	// DeleteExpired removes sessions that expired before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
