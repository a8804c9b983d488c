package handler

import (
	"errors"
	"net/http"
	"time"

	"vyre/backend/internal/identity/service"
	"vyre/backend/internal/platform/rbac"
	"vyre/backend/internal/platform/respond"
	sessiondomain "vyre/backend/internal/session/domain"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type sessionView struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toSessionView(s *sessiondomain.Session) sessionView {
	return sessionView{
		ID:        s.ID,
		IPAddress: s.IPAddress,
		Browser:   s.Device.Browser,
		OS:        s.Device.OS,
		UserAgent: s.Device.UserAgent,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// ChangePassword handles PUT /users/me/password. Every session of the caller ends, this one included.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), caller.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respond.Error(w, http.StatusBadRequest, "Current password is incorrect")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Password updated successfully", nil)
}

// ListSessions handles GET /users/me/sessions.
func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	list, err := h.svc.ListSessions(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, toSessionView(s))
	}
	respond.OK(w, "Sessions retrieved successfully", map[string]any{"sessions": out, "count": len(out)})
}

// RevokeSession handles DELETE /users/me/sessions/{sessionId}.
func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	if err := h.svc.RevokeSession(r.Context(), caller.UserID, r.PathValue("sessionId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Session revoked successfully", nil)
}

// LogoutAll handles POST /users/me/logout-all.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	n, err := h.svc.RevokeAll(r.Context(), caller.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Logged out of all devices", map[string]any{"revoked": n})
}
