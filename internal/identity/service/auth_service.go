package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vyre/backend/internal/activity"
	activitydomain "vyre/backend/internal/activity/domain"
	"vyre/backend/internal/ratelimit"
	"vyre/backend/internal/security"
	sessiondomain "vyre/backend/internal/session/domain"
	"vyre/backend/internal/telemetry"
	userdomain "vyre/backend/internal/user/domain"
)

// dummyPassword is hashed once and compared against when a login names an unknown email,
// so both failure paths spend one bcrypt comparison.
const dummyPassword = "vyre-login-timing-equalizer"

// TokenPair is what a successful login hands to the client.
type TokenPair struct {
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// AuthResult is the outcome of Login, Register and AcceptInvite.
type AuthResult struct {
	TokenPair
	User      *userdomain.User
	SessionID string
}

// RefreshResult is the outcome of Refresh. No new refresh token is issued.
type RefreshResult struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	User                 *userdomain.User
}

// Deps holds the AuthService collaborators. Limiter, Activity, Events and Metrics are optional.
type Deps struct {
	Users       UserRepo
	Sessions    SessionRepo
	Invitations InvitationRepo
	Tx          TxRunner
	Hasher      *security.Hasher
	Tokens      *security.TokenCodec
	Limiter     LoginLimiter
	Activity    activity.Recorder
	Events      telemetry.EventEmitter
	Metrics     *telemetry.AuthMetrics
	InviteTTL   time.Duration
	ResetTTL    time.Duration
	// LogResetTokens logs issued password-reset tokens at debug level. Development only.
	LogResetTokens bool
	Now            func() time.Time
}

// AuthService implements the session protocol: login, refresh, revoke, change password, plus
// registration, invitations, password reset and per-device session management.
type AuthService struct {
	d Deps

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(d Deps) *AuthService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.InviteTTL <= 0 {
		d.InviteTTL = 7 * 24 * time.Hour
	}
	if d.ResetTTL <= 0 {
		d.ResetTTL = 30 * time.Minute
	}
	return &AuthService{d: d}
}

func (s *AuthService) now() time.Time { return s.d.Now().UTC() }

// Login authenticates email and password and opens a session for client.
// Unknown email, wrong password and inactive account all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*AuthResult, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.checkLimiter(ctx, email, client.IPAddress); err != nil {
		s.emit(&telemetry.Event{EventType: telemetry.EventLoginThrottled, IPAddress: client.IPAddress, Metadata: map[string]any{"email": email}})
		s.d.Metrics.Record(ctx, "login", telemetry.OutcomeThrottled)
		return nil, err
	}
	creds, err := s.d.Users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		s.d.Metrics.Record(ctx, "login", telemetry.OutcomeError)
		return nil, internalErr("load credentials", err)
	}
	if creds == nil || creds.User == nil {
		s.d.Hasher.Verify(password, s.dummy())
		return nil, s.loginFailed(ctx, email, "", client)
	}
	if !s.d.Hasher.Verify(password, creds.PasswordHash) || !creds.User.IsActive {
		return nil, s.loginFailed(ctx, email, creds.User.CompanyID, client)
	}
	u := creds.User
	if s.d.Limiter != nil {
		if err := s.d.Limiter.Reset(ctx, email); err != nil {
			slog.WarnContext(ctx, "auth: reset login limiter", "err", err)
		}
	}

	res, err := s.startSession(ctx, u, client)
	if err != nil {
		s.d.Metrics.Record(ctx, "login", telemetry.OutcomeError)
		return nil, err
	}
	now := s.now()
	if err := s.d.Users.TouchLastLogin(ctx, u.ID, now); err != nil {
		slog.WarnContext(ctx, "auth: update last login", "user_id", u.ID, "err", err)
	} else {
		u.LastLoginAt = &now
	}
	s.record(ctx, activity.Entry{
		CompanyID:   u.CompanyID,
		UserID:      u.ID,
		Action:      activitydomain.ActionOther,
		EntityType:  activitydomain.EntityUser,
		EntityID:    u.ID,
		Description: "User logged in",
		Details:     map[string]any{"ip": client.IPAddress},
	})
	s.emit(&telemetry.Event{EventType: telemetry.EventLoginSuccess, CompanyID: u.CompanyID, UserID: u.ID, SessionID: res.SessionID, IPAddress: client.IPAddress})
	s.d.Metrics.Record(ctx, "login", telemetry.OutcomeSuccess)
	return res, nil
}

func (s *AuthService) checkLimiter(ctx context.Context, email, ip string) error {
	if s.d.Limiter == nil {
		return nil
	}
	err := s.d.Limiter.Check(ctx, email, ip)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrTooManyAttempts):
		return ErrTooManyAttempts
	default:
		// Throttling is an extra; a Redis outage must not lock everyone out.
		slog.WarnContext(ctx, "auth: login limiter unavailable", "err", err)
		return nil
	}
}

func (s *AuthService) loginFailed(ctx context.Context, email, companyID string, client ClientInfo) error {
	if s.d.Limiter != nil {
		if err := s.d.Limiter.RecordFailure(ctx, email, client.IPAddress); err != nil {
			slog.WarnContext(ctx, "auth: record failed login", "err", err)
		}
	}
	s.emit(&telemetry.Event{EventType: telemetry.EventLoginFailure, CompanyID: companyID, IPAddress: client.IPAddress, Metadata: map[string]any{"email": email}})
	s.d.Metrics.Record(ctx, "login", telemetry.OutcomeFailure)
	return ErrInvalidCredentials
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.d.Hasher.Hash(dummyPassword)
		if err != nil {
			slog.Error("auth: hash dummy password", "err", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

// startSession mints an access and refresh token for u and stores the refresh token's session row.
func (s *AuthService) startSession(ctx context.Context, u *userdomain.User, client ClientInfo) (*AuthResult, error) {
	access, accessExp, err := s.d.Tokens.IssueAccess(subjectOf(u))
	if err != nil {
		return nil, internalErr("issue access token", err)
	}
	refresh, refreshExp, err := s.d.Tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, internalErr("issue refresh token", err)
	}
	sess := &sessiondomain.Session{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: security.HashToken(refresh),
		ExpiresAt: refreshExp,
		IPAddress: client.IPAddress,
		Device:    sessiondomain.ParseDevice(client.UserAgent),
		CreatedAt: s.now(),
	}
	if err := s.d.Sessions.Create(ctx, sess); err != nil {
		return nil, internalErr("create session", err)
	}
	return &AuthResult{
		TokenPair: TokenPair{
			AccessToken:           access,
			AccessTokenExpiresAt:  accessExp,
			RefreshToken:          refresh,
			RefreshTokenExpiresAt: refreshExp,
		},
		User:      u,
		SessionID: sess.ID,
	}, nil
}

func subjectOf(u *userdomain.User) security.AccessSubject {
	return security.AccessSubject{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
	}
}

// verifyRefresh maps codec failures to ErrInvalidToken, keeping configuration errors distinct.
func (s *AuthService) verifyRefresh(token string) (*security.RefreshClaims, error) {
	claims, err := s.d.Tokens.VerifyRefresh(strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, security.ErrMissingSecret) {
			return nil, internalErr("verify refresh token", err)
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		s.d.Metrics.Record(ctx, "refresh", telemetry.OutcomeFailure)
		return nil, err
	}
	sess, err := s.d.Sessions.FindActive(ctx, claims.Subject, security.HashToken(strings.TrimSpace(refreshToken)), s.now())
	if err != nil {
		return nil, internalErr("find session", err)
	}
	if sess == nil {
		s.d.Metrics.Record(ctx, "refresh", telemetry.OutcomeFailure)
		return nil, ErrInvalidToken
	}
	u, err := s.d.Users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, internalErr("load user", err)
	}
	if u == nil || !u.IsActive {
		s.d.Metrics.Record(ctx, "refresh", telemetry.OutcomeFailure)
		return nil, ErrInvalidToken
	}
	access, exp, err := s.d.Tokens.IssueAccess(subjectOf(u))
	if err != nil {
		return nil, internalErr("issue access token", err)
	}
	s.emit(&telemetry.Event{EventType: telemetry.EventRefresh, CompanyID: u.CompanyID, UserID: u.ID, SessionID: sess.ID})
	s.d.Metrics.Record(ctx, "refresh", telemetry.OutcomeSuccess)
	return &RefreshResult{AccessToken: access, AccessTokenExpiresAt: exp, User: u}, nil
}

// Revoke permanently removes the session of a refresh token. A token that verifies but whose
// session is already gone is not an error.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.verifyRefresh(refreshToken)
	if err != nil {
		return err
	}
	removed, err := s.d.Sessions.DeleteByToken(ctx, claims.Subject, security.HashToken(strings.TrimSpace(refreshToken)))
	if err != nil {
		return internalErr("delete session", err)
	}
	s.emit(&telemetry.Event{EventType: telemetry.EventRevoke, UserID: claims.Subject, Metadata: map[string]any{"removed": removed}})
	s.d.Metrics.Record(ctx, "revoke", telemetry.OutcomeSuccess)
	return nil
}

// ChangePassword replaces the user's password after verifying the current one and ends every session.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" {
		return invalid("currentPassword", errors.New("current password is required"))
	}
	if err := userdomain.ValidatePassword(next); err != nil {
		return invalid("newPassword", err)
	}
	creds, err := s.d.Users.GetCredentialsByID(ctx, userID)
	if err != nil {
		return internalErr("load credentials", err)
	}
	if creds == nil || !s.d.Hasher.Verify(current, creds.PasswordHash) {
		s.d.Metrics.Record(ctx, "change_password", telemetry.OutcomeFailure)
		return ErrInvalidCredentials
	}
	if current == next {
		return ErrSamePassword
	}
	if err := s.setPassword(ctx, userID, next); err != nil {
		return err
	}
	s.emit(&telemetry.Event{EventType: telemetry.EventPasswordChanged, CompanyID: creds.User.CompanyID, UserID: userID})
	s.d.Metrics.Record(ctx, "change_password", telemetry.OutcomeSuccess)
	return nil
}

// setPassword hashes password, then stores it and deletes every session of the user in one transaction.
func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.d.Hasher.Hash(password)
	if err != nil {
		return internalErr("hash password", err)
	}
	return s.d.Tx.InTx(ctx, func(st Stores) error {
		return replacePassword(ctx, st, userID, hash)
	})
}

func replacePassword(ctx context.Context, st Stores, userID, hash string) error {
	if err := st.Users.UpdatePassword(ctx, userID, hash); err != nil {
		return internalErr("update password", err)
	}
	if _, err := st.Sessions.DeleteAllByUser(ctx, userID); err != nil {
		return internalErr("delete sessions", err)
	}
	return nil
}

// ListSessions returns the user's unexpired sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	list, err := s.d.Sessions.ListActive(ctx, userID, s.now())
	if err != nil {
		return nil, internalErr("list sessions", err)
	}
	return list, nil
}

// RevokeSession ends one of the user's sessions by id.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	removed, err := s.d.Sessions.DeleteByID(ctx, userID, sessionID)
	if err != nil {
		return internalErr("delete session", err)
	}
	if !removed {
		return ErrSessionNotFound
	}
	s.emit(&telemetry.Event{EventType: telemetry.EventRevoke, UserID: userID, SessionID: sessionID})
	return nil
}

// RevokeAll ends every session of the user and reports how many were removed.
func (s *AuthService) RevokeAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.d.Sessions.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, internalErr("delete sessions", err)
	}
	s.emit(&telemetry.Event{EventType: telemetry.EventLogoutAll, UserID: userID, Metadata: map[string]any{"sessions": n}})
	return n, nil
}

func (s *AuthService) emit(ev *telemetry.Event) {
	if s.d.Events == nil {
		return
	}
	if ev.Source == "" {
		ev.Source = telemetry.SourceAuth
	}
	ev.CreatedAt = s.now()
	telemetry.EmitAsync(s.d.Events, ev)
}

func (s *AuthService) record(ctx context.Context, e activity.Entry) {
	if s.d.Activity == nil {
		return
	}
	s.d.Activity.Record(ctx, e)
}
