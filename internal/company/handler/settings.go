// Package handler serves the /settings endpoints: company profile, interview defaults and
// notification preferences. Every read and write is scoped to the caller's company.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"vyre/backend/internal/company/domain"
	"vyre/backend/internal/platform/rbac"
	"vyre/backend/internal/platform/respond"
	"vyre/backend/internal/server/middleware"
	userdomain "vyre/backend/internal/user/domain"
)

// CompanyStore loads and saves companies.
type CompanyStore interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	Update(ctx context.Context, c *domain.Company) error
}

// SettingsHandler serves company settings.
type SettingsHandler struct {
	companies CompanyStore
	now       func() time.Time
}

// NewSettingsHandler returns a SettingsHandler.
func NewSettingsHandler(companies CompanyStore) *SettingsHandler {
	return &SettingsHandler{companies: companies, now: time.Now}
}

type companyView struct {
	CompanyName string `json:"companyName"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Website     string `json:"website"`
	Industry    string `json:"industry"`
	Size        string `json:"size"`
	Location    string `json:"location"`
}

type companyRequest struct {
	CompanyName *string `json:"companyName"`
	Description *string `json:"description"`
	Logo        *string `json:"logo"`
	Website     *string `json:"website"`
	Industry    *string `json:"industry"`
	Size        *string `json:"size"`
	Location    *string `json:"location"`
}

type interviewView struct {
	DefaultDuration int    `json:"defaultDuration"`
	DefaultLocation string `json:"defaultLocation"`
}

type interviewRequest struct {
	DefaultDuration *int    `json:"defaultDuration"`
	DefaultLocation *string `json:"defaultLocation"`
}

type emailNotifications struct {
	NewApplicant       bool `json:"newApplicant"`
	InterviewScheduled bool `json:"interviewScheduled"`
	InterviewCompleted bool `json:"interviewCompleted"`
}

type notificationView struct {
	Email emailNotifications `json:"email"`
}

type notificationRequest struct {
	Email *struct {
		NewApplicant       *bool `json:"newApplicant"`
		InterviewScheduled *bool `json:"interviewScheduled"`
		InterviewCompleted *bool `json:"interviewCompleted"`
	} `json:"email"`
}

func toCompanyView(c *domain.Company) companyView {
	return companyView{
		CompanyName: c.Name,
		Description: c.Description,
		Logo:        c.Logo,
		Website:     c.Website,
		Industry:    c.Industry,
		Size:        string(c.Size),
		Location:    c.Location,
	}
}

func toNotificationView(c *domain.Company) notificationView {
	p := c.NotificationPreferences
	return notificationView{Email: emailNotifications{
		NewApplicant:       p.NewApplicant,
		InterviewScheduled: p.InterviewScheduled,
		InterviewCompleted: p.InterviewCompleted,
	}}
}

// GetCompany handles GET /settings/company.
func (h *SettingsHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.OK(w, "Company settings retrieved successfully", toCompanyView(c))
}

// UpdateCompany handles PUT /settings/company. Admin only.
func (h *SettingsHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	c, ok := h.loadForUpdate(w, r, &req, userdomain.RoleAdmin)
	if !ok {
		return
	}
	setString(&c.Name, req.CompanyName)
	setString(&c.Description, req.Description)
	setString(&c.Logo, req.Logo)
	setString(&c.Website, req.Website)
	setString(&c.Industry, req.Industry)
	setString(&c.Location, req.Location)
	if req.Size != nil {
		c.Size = domain.Size(strings.TrimSpace(*req.Size))
	}
	if !h.save(w, r, c) {
		return
	}
	respond.OK(w, "Company settings updated successfully", toCompanyView(c))
}

// GetInterviewPreferences handles GET /settings/interview-preferences.
func (h *SettingsHandler) GetInterviewPreferences(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.OK(w, "Interview preferences retrieved successfully", interviewView{
		DefaultDuration: c.InterviewPreferences.DefaultDuration,
		DefaultLocation: c.InterviewPreferences.DefaultLocation,
	})
}

// UpdateInterviewPreferences handles PUT /settings/interview-preferences. Admins and hiring managers only.
func (h *SettingsHandler) UpdateInterviewPreferences(w http.ResponseWriter, r *http.Request) {
	var req interviewRequest
	c, ok := h.loadForUpdate(w, r, &req, userdomain.RoleAdmin, userdomain.RoleHiringManager)
	if !ok {
		return
	}
	if req.DefaultDuration != nil {
		c.InterviewPreferences.DefaultDuration = *req.DefaultDuration
	}
	setString(&c.InterviewPreferences.DefaultLocation, req.DefaultLocation)
	if !h.save(w, r, c) {
		return
	}
	respond.OK(w, "Interview preferences updated successfully", interviewView{
		DefaultDuration: c.InterviewPreferences.DefaultDuration,
		DefaultLocation: c.InterviewPreferences.DefaultLocation,
	})
}

// GetNotificationPreferences handles GET /settings/notification-preferences.
func (h *SettingsHandler) GetNotificationPreferences(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.OK(w, "Notification preferences retrieved successfully", toNotificationView(c))
}

// UpdateNotificationPreferences handles PUT /settings/notification-preferences. Admins and hiring managers only.
func (h *SettingsHandler) UpdateNotificationPreferences(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	c, ok := h.loadForUpdate(w, r, &req, userdomain.RoleAdmin, userdomain.RoleHiringManager)
	if !ok {
		return
	}
	if e := req.Email; e != nil {
		p := &c.NotificationPreferences
		setBool(&p.NewApplicant, e.NewApplicant)
		setBool(&p.InterviewScheduled, e.InterviewScheduled)
		setBool(&p.InterviewCompleted, e.InterviewCompleted)
	}
	if !h.save(w, r, c) {
		return
	}
	respond.OK(w, "Notification preferences updated successfully", toNotificationView(c))
}

// load returns the caller's company, writing the error response itself when it fails.
func (h *SettingsHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Company, bool) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return nil, false
	}
	return h.company(w, r, caller)
}

func (h *SettingsHandler) loadForUpdate(w http.ResponseWriter, r *http.Request, req any, roles ...userdomain.Role) (*domain.Company, bool) {
	caller, err := rbac.Caller(r.Context(), roles...)
	if err != nil {
		rbac.WriteError(w, err)
		return nil, false
	}
	if err := respond.DecodeJSON(w, r, req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	return h.company(w, r, caller)
}

func (h *SettingsHandler) company(w http.ResponseWriter, r *http.Request, caller *middleware.Summary) (*domain.Company, bool) {
	c, err := h.companies.GetByID(r.Context(), caller.CompanyID)
	if err != nil {
		respond.Internal(w, r, err)
		return nil, false
	}
	if c == nil {
		respond.Error(w, http.StatusNotFound, "Company not found")
		return nil, false
	}
	return c, true
}

func (h *SettingsHandler) save(w http.ResponseWriter, r *http.Request, c *domain.Company) bool {
	if err := c.Validate(); err != nil {
		respond.Error(w, http.StatusBadRequest, "Validation failed", respond.FieldError{Field: fieldOf(err), Message: err.Error()})
		return false
	}
	c.UpdatedAt = h.now().UTC()
	if err := h.companies.Update(r.Context(), c); err != nil {
		respond.Internal(w, r, err)
		return false
	}
	return true
}

func fieldOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNameRequired):
		return "companyName"
	case errors.Is(err, domain.ErrSizeInvalid):
		return "size"
	case errors.Is(err, domain.ErrDurationInvalid):
		return "defaultDuration"
	}
	return ""
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
