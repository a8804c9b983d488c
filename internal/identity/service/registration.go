package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"vyre/backend/internal/activity"
	activitydomain "vyre/backend/internal/activity/domain"
	companydomain "vyre/backend/internal/company/domain"
	invitationdomain "vyre/backend/internal/invitation/domain"
	"vyre/backend/internal/security"
	"vyre/backend/internal/telemetry"
	userdomain "vyre/backend/internal/user/domain"
	userrepo "vyre/backend/internal/user/repository"
)

// RegisterInput is a self-service signup creating a new company.
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	CompanyName string
}

// RegisterResult is the logged-in founder and their new company.
type RegisterResult struct {
	*AuthResult
	Company *companydomain.Company
}

// Register creates a company and its first user (an admin) in one transaction, then logs that user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (*RegisterResult, error) {
	email := userdomain.NormalizeEmail(in.Email)
	if strings.TrimSpace(in.CompanyName) == "" {
		return nil, invalid("companyName", companydomain.ErrNameRequired)
	}
	if err := userdomain.ValidatePassword(in.Password); err != nil {
		return nil, invalid("password", err)
	}
	now := s.now()
	company := companydomain.New(uuid.New().String(), in.CompanyName, now)
	u := newUser(email, in.FirstName, in.LastName, userdomain.RoleAdmin, company.ID, now)
	if err := validateUser(u); err != nil {
		return nil, err
	}
	hash, err := s.d.Hasher.Hash(in.Password)
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	err = s.d.Tx.InTx(ctx, func(st Stores) error {
		existing, err := st.Users.GetByEmail(ctx, email)
		if err != nil {
			return internalErr("lookup email", err)
		}
		if existing != nil {
			return ErrEmailAlreadyRegistered
		}
		if err := st.Companies.Create(ctx, company); err != nil {
			return internalErr("create company", err)
		}
		return createUser(ctx, st.Users, u, hash)
	})
	if err != nil {
		s.d.Metrics.Record(ctx, "register", telemetry.OutcomeFailure)
		return nil, err
	}

	res, err := s.startSession(ctx, u, client)
	if err != nil {
		return nil, err
	}
	s.record(ctx, activity.Entry{
		CompanyID:   company.ID,
		UserID:      u.ID,
		Action:      activitydomain.ActionCreated,
		EntityType:  activitydomain.EntityCompany,
		EntityID:    company.ID,
		Description: "Registered company " + company.Name,
	})
	s.emit(&telemetry.Event{EventType: telemetry.EventRegister, CompanyID: company.ID, UserID: u.ID, SessionID: res.SessionID, IPAddress: client.IPAddress})
	s.d.Metrics.Record(ctx, "register", telemetry.OutcomeSuccess)
	return &RegisterResult{AuthResult: res, Company: company}, nil
}

// Inviter is the admin creating an invitation.
type Inviter struct {
	UserID    string
	CompanyID string
}

// InviteResult carries the stored invitation and the raw token to deliver to the invitee.
// The token is not stored anywhere and cannot be recovered later.
type InviteResult struct {
	Invitation *invitationdomain.Invitation
	Token      string
}

// Invite creates an invitation for email to join the inviter's company with role.
func (s *AuthService) Invite(ctx context.Context, by Inviter, email string, role userdomain.Role) (*InviteResult, error) {
	email = userdomain.NormalizeEmail(email)
	if err := userdomain.ValidateEmail(email); err != nil {
		return nil, invalid("email", err)
	}
	if !role.Valid() {
		return nil, invalid("role", userdomain.ErrRoleInvalid)
	}
	existing, err := s.d.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, internalErr("lookup email", err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	token, err := security.NewOpaqueToken()
	if err != nil {
		return nil, internalErr("generate invite token", err)
	}
	now := s.now()
	inv := &invitationdomain.Invitation{
		ID:        uuid.New().String(),
		CompanyID: by.CompanyID,
		Email:     email,
		Role:      role,
		TokenHash: security.HashToken(token),
		InvitedBy: by.UserID,
		ExpiresAt: now.Add(s.d.InviteTTL),
		CreatedAt: now,
	}
	if err := s.d.Invitations.Create(ctx, inv); err != nil {
		return nil, internalErr("create invitation", err)
	}
	return &InviteResult{Invitation: inv, Token: token}, nil
}

// AcceptInviteInput completes an invitation.
type AcceptInviteInput struct {
	Token     string
	Password  string
	FirstName string
	LastName  string
}

// AcceptInvite consumes a pending invitation, creates the member and logs them in.
func (s *AuthService) AcceptInvite(ctx context.Context, in AcceptInviteInput, client ClientInfo) (*AuthResult, error) {
	token := strings.TrimSpace(in.Token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	if err := userdomain.ValidatePassword(in.Password); err != nil {
		return nil, invalid("password", err)
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, invalid("firstName", userdomain.ErrFirstNameRequired)
	}
	if strings.TrimSpace(in.LastName) == "" {
		return nil, invalid("lastName", userdomain.ErrLastNameRequired)
	}
	hash, err := s.d.Hasher.Hash(in.Password)
	if err != nil {
		return nil, internalErr("hash password", err)
	}

	now := s.now()
	var u *userdomain.User
	err = s.d.Tx.InTx(ctx, func(st Stores) error {
		inv, err := st.Invitations.FindPending(ctx, security.HashToken(token), now)
		if err != nil {
			return internalErr("find invitation", err)
		}
		if inv == nil {
			return ErrInvalidToken
		}
		existing, err := st.Users.GetByEmail(ctx, inv.Email)
		if err != nil {
			return internalErr("lookup email", err)
		}
		if existing != nil {
			return ErrEmailAlreadyRegistered
		}
		ok, err := st.Invitations.MarkAccepted(ctx, inv.ID, now)
		if err != nil {
			return internalErr("accept invitation", err)
		}
		if !ok {
			return ErrInvalidToken
		}
		u = newUser(inv.Email, in.FirstName, in.LastName, inv.Role, inv.CompanyID, now)
		if err := validateUser(u); err != nil {
			return err
		}
		return createUser(ctx, st.Users, u, hash)
	})
	if err != nil {
		return nil, err
	}

	res, err := s.startSession(ctx, u, client)
	if err != nil {
		return nil, err
	}
	s.record(ctx, activity.Entry{
		CompanyID:   u.CompanyID,
		UserID:      u.ID,
		Action:      activitydomain.ActionCreated,
		EntityType:  activitydomain.EntityUser,
		EntityID:    u.ID,
		Description: u.FullName() + " joined the team",
	})
	s.emit(&telemetry.Event{EventType: telemetry.EventInviteAccepted, CompanyID: u.CompanyID, UserID: u.ID, SessionID: res.SessionID, IPAddress: client.IPAddress})
	return res, nil
}

func newUser(email, firstName, lastName string, role userdomain.Role, companyID string, now time.Time) *userdomain.User {
	return &userdomain.User{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Email:       email,
		FirstName:   strings.TrimSpace(firstName),
		LastName:    strings.TrimSpace(lastName),
		Role:        role,
		Skills:      []string{},
		Preferences: userdomain.DefaultPreferences(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// validateUser maps domain validation failures to the input field they concern.
func validateUser(u *userdomain.User) error {
	err := u.Validate()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, userdomain.ErrEmailRequired), errors.Is(err, userdomain.ErrEmailInvalid):
		return invalid("email", err)
	case errors.Is(err, userdomain.ErrFirstNameRequired):
		return invalid("firstName", err)
	case errors.Is(err, userdomain.ErrLastNameRequired):
		return invalid("lastName", err)
	case errors.Is(err, userdomain.ErrRoleInvalid):
		return invalid("role", err)
	default:
		return invalid("user", err)
	}
}

func createUser(ctx context.Context, users UserRepo, u *userdomain.User, hash string) error {
	if err := users.Create(ctx, u, hash); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return ErrEmailAlreadyRegistered
		}
		return internalErr("create user", err)
	}
	return nil
}
