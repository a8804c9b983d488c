// Package service implements team management: listing members of a company and changing or
// removing them under the team policy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"vyre/backend/internal/policy/engine"
	userdomain "vyre/backend/internal/user/domain"
	userrepo "vyre/backend/internal/user/repository"
)

var (
	// ErrMemberNotFound is returned when the member does not exist in the caller's company.
	ErrMemberNotFound = errors.New("team member not found")
	// ErrInternal wraps store and policy failures.
	ErrInternal = errors.New("internal error")
)

// DeniedError is returned when the team policy refuses a change.
type DeniedError struct {
	Action  engine.TeamAction
	Reasons []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("team policy denied %s: %s", e.Action, strings.Join(e.Reasons, ", "))
}

// Has reports whether reason is among the deny reasons.
func (e *DeniedError) Has(reason string) bool {
	return engine.Decision{Reasons: e.Reasons}.Has(reason)
}

// UserRepo is the user persistence the team service needs.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	ListByCompany(ctx context.Context, companyID string, f userrepo.ListFilter) ([]*userdomain.User, int, error)
	CountByRole(ctx context.Context, companyID string, role userdomain.Role) (int, error)
	UpdateMembership(ctx context.Context, id string, role userdomain.Role, department, position string) error
	Delete(ctx context.Context, id string) error
}

// SessionRepo ends a member's sessions after a role change.
type SessionRepo interface {
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// Stores are the repositories bound to one transaction.
type Stores struct {
	Users    UserRepo
	Sessions SessionRepo
}

// TxRunner runs fn inside a transaction. fn's error rolls the transaction back.
type TxRunner interface {
	InTx(ctx context.Context, fn func(Stores) error) error
}

// maxPage keeps (page-1)*limit well inside int range.
const maxPage = 10000

// Actor is the caller performing a team operation.
type Actor struct {
	UserID    string
	CompanyID string
	Role      userdomain.Role
}

// UpdateInput holds the membership fields to change. Nil fields are left as they are.
type UpdateInput struct {
	Role       *userdomain.Role
	Department *string
	Position   *string
}

// Service manages company membership.
type Service struct {
	users  UserRepo
	tx     TxRunner
	policy engine.TeamEvaluator
}

// New returns a team Service. Membership writes go through tx.
func New(users UserRepo, tx TxRunner, policy engine.TeamEvaluator) *Service {
	return &Service{users: users, tx: tx, policy: policy}
}

// List returns one page of the company's members sorted by name, and the total match count.
func (s *Service) List(ctx context.Context, companyID, query string, page, limit int) ([]*userdomain.User, int, error) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	members, total, err := s.users.ListByCompany(ctx, companyID, userrepo.ListFilter{
		Query:  strings.TrimSpace(query),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list members: %w", ErrInternal, err)
	}
	return members, total, nil
}

// Get returns a member of companyID. Members of other companies are reported as not found.
func (s *Service) Get(ctx context.Context, companyID, memberID string) (*userdomain.User, error) {
	u, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("%w: load member: %w", ErrInternal, err)
	}
	if u == nil || u.CompanyID != companyID {
		return nil, ErrMemberNotFound
	}
	return u, nil
}

// Update changes a member's role, department or position. A role change must pass the team
// policy and ends the member's sessions.
func (s *Service) Update(ctx context.Context, actor Actor, memberID string, in UpdateInput) (*userdomain.User, error) {
	u, err := s.Get(ctx, actor.CompanyID, memberID)
	if err != nil {
		return nil, err
	}
	roleChanged := in.Role != nil && *in.Role != u.Role
	if roleChanged {
		if !in.Role.Valid() {
			return nil, userdomain.ErrRoleInvalid
		}
		if err := s.authorize(ctx, engine.ActionChangeRole, actor, u, string(*in.Role)); err != nil {
			return nil, err
		}
		u.Role = *in.Role
	}
	if in.Department != nil {
		u.Department = strings.TrimSpace(*in.Department)
	}
	if in.Position != nil {
		u.Position = strings.TrimSpace(*in.Position)
	}
	var ended int64
	err = s.tx.InTx(ctx, func(st Stores) error {
		if err := st.Users.UpdateMembership(ctx, u.ID, u.Role, u.Department, u.Position); err != nil {
			return fmt.Errorf("%w: update member: %w", ErrInternal, err)
		}
		if !roleChanged {
			return nil
		}
		n, err := st.Sessions.DeleteAllByUser(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("%w: end member sessions: %w", ErrInternal, err)
		}
		ended = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ended > 0 {
		slog.InfoContext(ctx, "team: role changed, sessions ended", "member_id", u.ID, "role", u.Role, "sessions", ended)
	}
	return u, nil
}

// Remove deletes a member from the company. Their sessions go with them.
func (s *Service) Remove(ctx context.Context, actor Actor, memberID string) error {
	u, err := s.Get(ctx, actor.CompanyID, memberID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, engine.ActionRemove, actor, u, ""); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return fmt.Errorf("%w: delete member: %w", ErrInternal, err)
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, action engine.TeamAction, actor Actor, target *userdomain.User, newRole string) error {
	admins, err := s.users.CountByRole(ctx, target.CompanyID, userdomain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("%w: count admins: %w", ErrInternal, err)
	}
	d, err := s.policy.DecideTeam(ctx, engine.TeamInput{
		Action:     action,
		Actor:      engine.Member{ID: actor.UserID, CompanyID: actor.CompanyID, Role: string(actor.Role)},
		Target:     engine.Member{ID: target.ID, CompanyID: target.CompanyID, Role: string(target.Role)},
		NewRole:    newRole,
		AdminCount: admins,
	})
	if err != nil {
		return fmt.Errorf("%w: evaluate team policy: %w", ErrInternal, err)
	}
	if !d.Allow {
		return &DeniedError{Action: action, Reasons: d.Reasons}
	}
	return nil
}
