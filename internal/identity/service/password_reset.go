package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"vyre/backend/internal/security"
	"vyre/backend/internal/telemetry"
	userdomain "vyre/backend/internal/user/domain"
)

// ForgotPassword issues a single-use reset token for email if such an active user exists.
// It reports success either way so the endpoint does not reveal which emails are registered.
// Delivery of the token is outside this service.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return invalid("email", err)
	}
	u, err := s.d.Users.GetByEmail(ctx, email)
	if err != nil {
		return internalErr("lookup email", err)
	}
	if u == nil || !u.IsActive {
		return nil
	}
	token, err := security.NewOpaqueToken()
	if err != nil {
		return internalErr("generate reset token", err)
	}
	expires := s.now().Add(s.d.ResetTTL)
	if err := s.d.Users.SetResetToken(ctx, u.ID, security.HashToken(token), expires); err != nil {
		return internalErr("store reset token", err)
	}
	if s.d.LogResetTokens {
		slog.DebugContext(ctx, "auth: password reset token issued", "user_id", u.ID, "token", token, "expires_at", expires)
	}
	return nil
}

// ResetPassword sets a new password using a reset token and ends every session of the user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	if err := userdomain.ValidatePassword(newPassword); err != nil {
		return invalid("password", err)
	}
	hash, err := s.d.Hasher.Hash(newPassword)
	if err != nil {
		return internalErr("hash password", err)
	}
	var u *userdomain.User
	err = s.d.Tx.InTx(ctx, func(st Stores) error {
		var err error
		u, err = st.Users.ConsumeResetToken(ctx, security.HashToken(token), s.now())
		if err != nil {
			return internalErr("consume reset token", err)
		}
		if u == nil {
			return ErrInvalidToken
		}
		return replacePassword(ctx, st, u.ID, hash)
	})
	if errors.Is(err, ErrInvalidToken) {
		s.d.Metrics.Record(ctx, "reset_password", telemetry.OutcomeFailure)
		return err
	}
	if err != nil {
		return err
	}
	s.emit(&telemetry.Event{EventType: telemetry.EventPasswordReset, CompanyID: u.CompanyID, UserID: u.ID})
	s.d.Metrics.Record(ctx, "reset_password", telemetry.OutcomeSuccess)
	return nil
}
