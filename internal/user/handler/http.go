// Package handler serves the /users endpoints: the caller's own profile and the tenant's user directory.
package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vyre/backend/internal/activity"
	activitydomain "vyre/backend/internal/activity/domain"
	"vyre/backend/internal/platform/rbac"
	"vyre/backend/internal/platform/respond"
	"vyre/backend/internal/user/domain"
	userrepo "vyre/backend/internal/user/repository"
)

const (
	defaultPageSize     = 20
	maxPageSize         = 100
	recentActivityLimit = 10
	maxSkills           = 50
)

// UserStore is the user persistence the handlers need.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListByCompany(ctx context.Context, companyID string, f userrepo.ListFilter) ([]*domain.User, int, error)
	UpdateProfile(ctx context.Context, u *domain.User) error
}

// ActivityReader reads a user's own activity.
type ActivityReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*activitydomain.Activity, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// Handler serves profile and directory endpoints.
type Handler struct {
	users      UserStore
	activities ActivityReader
	now        func() time.Time
}

// NewHandler returns a user Handler.
func NewHandler(users UserStore, activities ActivityReader) *Handler {
	return &Handler{users: users, activities: activities, now: time.Now}
}

type preferencesView struct {
	Notifications struct {
		Email bool `json:"email"`
		InApp bool `json:"inApp"`
	} `json:"notifications"`
	Theme string `json:"theme"`
}

type profileView struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"companyId"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Role        string          `json:"role"`
	Position    string          `json:"position"`
	Department  string          `json:"department"`
	Avatar      string          `json:"avatar"`
	PhoneNumber string          `json:"phoneNumber"`
	Location    string          `json:"location"`
	Bio         string          `json:"bio"`
	Skills      []string        `json:"skills"`
	Preferences preferencesView `json:"preferences"`
	IsActive    bool            `json:"isActive"`
	LastLogin   *time.Time      `json:"lastLogin"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func toProfileView(u *domain.User) profileView {
	v := profileView{
		ID:          u.ID,
		CompanyID:   u.CompanyID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        string(u.Role),
		Position:    u.Position,
		Department:  u.Department,
		Avatar:      u.Avatar,
		PhoneNumber: u.PhoneNumber,
		Location:    u.Location,
		Bio:         u.Bio,
		Skills:      u.Skills,
		IsActive:    u.IsActive,
		LastLogin:   u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if v.Skills == nil {
		v.Skills = []string{}
	}
	v.Preferences.Notifications.Email = u.Preferences.NotifyEmail
	v.Preferences.Notifications.InApp = u.Preferences.NotifyInApp
	v.Preferences.Theme = string(u.Preferences.Theme)
	return v
}

// profileRequest lists the only fields a user may change about themselves.
type profileRequest struct {
	FirstName   *string   `json:"firstName"`
	LastName    *string   `json:"lastName"`
	Position    *string   `json:"position"`
	Department  *string   `json:"department"`
	Avatar      *string   `json:"avatar"`
	PhoneNumber *string   `json:"phoneNumber"`
	Location    *string   `json:"location"`
	Bio         *string   `json:"bio"`
	Skills      *[]string `json:"skills"`
	Preferences *struct {
		Notifications *struct {
			Email *bool `json:"email"`
			InApp *bool `json:"inApp"`
		} `json:"notifications"`
		Theme *string `json:"theme"`
	} `json:"preferences"`
}

// Me handles GET /users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.self(w, r)
	if !ok {
		return
	}
	respond.OK(w, "User profile retrieved successfully", toProfileView(u))
}

// UpdateMe handles PUT /users/me. Email, role, company and password cannot be changed here.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	u, ok := h.self(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := respond.DecodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := applyProfile(u, &req); len(errs) > 0 {
		respond.Error(w, http.StatusBadRequest, "Validation failed", errs...)
		return
	}
	u.UpdatedAt = h.now().UTC()
	if err := h.users.UpdateProfile(r.Context(), u); err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.OK(w, "Profile updated successfully", toProfileView(u))
}

// MyActivity handles GET /users/me/activity: the caller's most recent activity and their total count.
func (h *Handler) MyActivity(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	limit := respond.IntParam(r, "limit", recentActivityLimit)
	if limit == 0 || limit > maxPageSize {
		limit = recentActivityLimit
	}
	list, err := h.activities.ListByUser(r.Context(), caller.UserID, limit)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	total, err := h.activities.CountByUser(r.Context(), caller.UserID)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.OK(w, "User activity retrieved successfully", map[string]any{"activities": activity.Views(list), "count": total})
}

// List handles GET /users?page&limit&q, the caller's company directory.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	page, limit := respond.PageParams(r, defaultPageSize, maxPageSize)
	users, total, err := h.users.ListByCompany(r.Context(), caller.CompanyID, userrepo.ListFilter{
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	out := make([]profileView, 0, len(users))
	for _, u := range users {
		out = append(out, toProfileView(u))
	}
	respond.OK(w, "Users retrieved successfully", map[string]any{
		"users":      out,
		"pagination": respond.NewPagination(total, page, limit),
	})
}

// Get handles GET /users/{userId}. Users of other companies are reported as not found.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	u, err := h.users.GetByID(r.Context(), r.PathValue("userId"))
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	if u == nil || u.CompanyID != caller.CompanyID {
		respond.Error(w, http.StatusNotFound, "User not found")
		return
	}
	respond.OK(w, "User retrieved successfully", toProfileView(u))
}

func (h *Handler) self(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return nil, false
	}
	u, err := h.users.GetByID(r.Context(), caller.UserID)
	if err != nil {
		respond.Internal(w, r, err)
		return nil, false
	}
	if u == nil {
		respond.Error(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	return u, true
}

func applyProfile(u *domain.User, req *profileRequest) []respond.FieldError {
	var errs []respond.FieldError
	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			errs = append(errs, respond.FieldError{Field: "firstName", Message: domain.ErrFirstNameRequired.Error()})
		}
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		if strings.TrimSpace(*req.LastName) == "" {
			errs = append(errs, respond.FieldError{Field: "lastName", Message: domain.ErrLastNameRequired.Error()})
		}
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	set(&u.Position, req.Position)
	set(&u.Department, req.Department)
	set(&u.PhoneNumber, req.PhoneNumber)
	set(&u.Location, req.Location)
	set(&u.Bio, req.Bio)
	if req.Avatar != nil {
		avatar := strings.TrimSpace(*req.Avatar)
		if avatar != "" && !validAvatarURL(avatar) {
			errs = append(errs, respond.FieldError{Field: "avatar", Message: "avatar must be an http(s) URL"})
		}
		u.Avatar = avatar
	}
	if req.Skills != nil {
		skills := make([]string, 0, len(*req.Skills))
		for _, s := range *req.Skills {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
		if len(skills) > maxSkills {
			errs = append(errs, respond.FieldError{Field: "skills", Message: "too many skills"})
		}
		u.Skills = skills
	}
	if p := req.Preferences; p != nil {
		if n := p.Notifications; n != nil {
			if n.Email != nil {
				u.Preferences.NotifyEmail = *n.Email
			}
			if n.InApp != nil {
				u.Preferences.NotifyInApp = *n.InApp
			}
		}
		if p.Theme != nil {
			theme := domain.Theme(*p.Theme)
			if !theme.Valid() {
				errs = append(errs, respond.FieldError{Field: "preferences.theme", Message: "theme must be light, dark or system"})
			}
			u.Preferences.Theme = theme
		}
	}
	return errs
}

func validAvatarURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
