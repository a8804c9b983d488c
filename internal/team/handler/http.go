// Package handler serves the /team endpoints.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	identity "vyre/backend/internal/identity/service"
	"vyre/backend/internal/platform/rbac"
	"vyre/backend/internal/platform/respond"
	"vyre/backend/internal/policy/engine"
	teamservice "vyre/backend/internal/team/service"
	userdomain "vyre/backend/internal/user/domain"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	placeholderAvatar  = "/placeholder.svg"
	positionNotDefined = "Not specified"
)

// TeamService is the subset of the team service the handlers call.
type TeamService interface {
	List(ctx context.Context, companyID, query string, page, limit int) ([]*userdomain.User, int, error)
	Get(ctx context.Context, companyID, memberID string) (*userdomain.User, error)
	Update(ctx context.Context, actor teamservice.Actor, memberID string, in teamservice.UpdateInput) (*userdomain.User, error)
	Remove(ctx context.Context, actor teamservice.Actor, memberID string) error
}

// Inviter creates invitations. It is implemented by the identity AuthService.
type Inviter interface {
	Invite(ctx context.Context, by identity.Inviter, email string, role userdomain.Role) (*identity.InviteResult, error)
}

// Handler serves team listing, invitations and membership changes.
type Handler struct {
	team    TeamService
	inviter Inviter
}

// NewHandler returns a team Handler.
func NewHandler(team TeamService, inviter Inviter) *Handler {
	return &Handler{team: team, inviter: inviter}
}

type memberView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Position   string `json:"position"`
	Avatar     string `json:"avatar"`
	Department string `json:"department,omitempty"`
}

func toMemberView(u *userdomain.User) memberView {
	v := memberView{
		ID:       u.ID,
		Name:     u.FullName(),
		Email:    u.Email,
		Role:     string(u.Role),
		Position: u.Position,
		Avatar:   u.Avatar,
	}
	if v.Position == "" {
		v.Position = positionNotDefined
	}
	if v.Avatar == "" {
		v.Avatar = placeholderAvatar
	}
	return v
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type updateRequest struct {
	Role       *string `json:"role"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
}

// List handles GET /team?page&limit&q.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	page, limit := respond.PageParams(r, defaultPageSize, maxPageSize)
	members, total, err := h.team.List(r.Context(), caller.CompanyID, r.URL.Query().Get("q"), page, limit)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		v := toMemberView(m)
		v.Department = ""
		out = append(out, v)
	}
	respond.OK(w, "Team members retrieved successfully", map[string]any{
		"members":    out,
		"pagination": respond.NewPagination(total, page, limit),
	})
}

// Get handles GET /team/{memberId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	m, err := h.team.Get(r.Context(), caller.CompanyID, r.PathValue("memberId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.OK(w, "Team member retrieved successfully", toMemberView(m))
}

// Invite handles POST /team/invite. The raw invitation token is returned once; delivering it is up to the caller.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context(), userdomain.RoleAdmin)
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	var req inviteRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.inviter.Invite(r.Context(), identity.Inviter{UserID: caller.UserID, CompanyID: caller.CompanyID}, req.Email, userdomain.Role(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.Success(w, http.StatusCreated, "Invitation sent successfully", map[string]any{
		"id":        res.Invitation.ID,
		"email":     res.Invitation.Email,
		"role":      res.Invitation.Role,
		"token":     res.Token,
		"expiresAt": res.Invitation.ExpiresAt.Format(time.RFC3339),
	})
}

// Update handles PUT /team/{memberId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context(), userdomain.RoleAdmin)
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	var req updateRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	in := teamservice.UpdateInput{Department: req.Department, Position: req.Position}
	if req.Role != nil {
		role := userdomain.Role(*req.Role)
		in.Role = &role
	}
	m, err := h.team.Update(r.Context(), actorOf(caller.UserID, caller.CompanyID, caller.Role), r.PathValue("memberId"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.OK(w, "Team member updated successfully", toMemberView(m))
}

// Remove handles DELETE /team/{memberId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context(), userdomain.RoleAdmin)
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	if err := h.team.Remove(r.Context(), actorOf(caller.UserID, caller.CompanyID, caller.Role), r.PathValue("memberId")); err != nil {
		writeError(w, r, err)
		return
	}
	respond.OK(w, "Team member removed successfully", nil)
}

func actorOf(userID, companyID string, role userdomain.Role) teamservice.Actor {
	return teamservice.Actor{UserID: userID, CompanyID: companyID, Role: role}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *teamservice.DeniedError
	var verr *identity.ValidationError
	switch {
	case errors.Is(err, teamservice.ErrMemberNotFound):
		respond.Error(w, http.StatusNotFound, "Team member not found")
	case errors.As(err, &denied):
		writeDenied(w, denied)
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, "Validation failed", respond.FieldError{Field: verr.Field, Message: verr.Err.Error()})
	case errors.Is(err, userdomain.ErrRoleInvalid):
		respond.Error(w, http.StatusBadRequest, "Validation failed", respond.FieldError{Field: "role", Message: err.Error()})
	case errors.Is(err, identity.ErrEmailAlreadyRegistered):
		respond.Error(w, http.StatusBadRequest, "User already exists with this email")
	default:
		respond.Internal(w, r, err)
	}
}

func writeDenied(w http.ResponseWriter, d *teamservice.DeniedError) {
	switch {
	case d.Has(engine.ReasonNotAdmin):
		respond.Error(w, http.StatusForbidden, "Only admins can manage team members")
	case d.Has(engine.ReasonOtherCompany):
		respond.Error(w, http.StatusNotFound, "Team member not found")
	case d.Has(engine.ReasonSelfRemoval):
		respond.Error(w, http.StatusBadRequest, "You cannot delete your own account")
	case d.Has(engine.ReasonLastAdmin):
		respond.Error(w, http.StatusBadRequest, "A company must keep at least one admin")
	default:
		respond.Error(w, http.StatusForbidden, "Forbidden. You do not have permission to access this resource.")
	}
}
