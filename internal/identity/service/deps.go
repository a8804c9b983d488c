package service

import (
	"context"
	"time"

	companydomain "vyre/backend/internal/company/domain"
	invitationdomain "vyre/backend/internal/invitation/domain"
	sessiondomain "vyre/backend/internal/session/domain"
	userdomain "vyre/backend/internal/user/domain"
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*userdomain.Credentials, error)
	GetCredentialsByID(ctx context.Context, id string) (*userdomain.Credentials, error)
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User, passwordHash string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	FindActive(ctx context.Context, userID, tokenHash string, now time.Time) (*sessiondomain.Session, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]*sessiondomain.Session, error)
	DeleteByToken(ctx context.Context, userID, tokenHash string) (bool, error)
	DeleteByID(ctx context.Context, userID, sessionID string) (bool, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// CompanyRepo is the minimal company repository needed by registration.
type CompanyRepo interface {
	Create(ctx context.Context, c *companydomain.Company) error
}

// InvitationRepo is the minimal invitation repository needed by the auth service.
type InvitationRepo interface {
	Create(ctx context.Context, inv *invitationdomain.Invitation) error
	FindPending(ctx context.Context, tokenHash string, now time.Time) (*invitationdomain.Invitation, error)
	MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error)
}

// LoginLimiter throttles failed logins. See ratelimit.LoginLimiter.
type LoginLimiter interface {
	Check(ctx context.Context, email, ip string) error
	RecordFailure(ctx context.Context, email, ip string) error
	Reset(ctx context.Context, email string) error
}

// Stores are the repositories bound to one transaction.
type Stores struct {
	Users       UserRepo
	Companies   CompanyRepo
	Invitations InvitationRepo
	Sessions    SessionRepo
}

// TxRunner runs fn inside a transaction. fn's error rolls the transaction back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}

// ClientInfo describes the caller a session is opened for.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
