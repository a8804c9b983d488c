// Package handler serves the authentication endpoints over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"vyre/backend/internal/identity/service"
	"vyre/backend/internal/platform/respond"
	"vyre/backend/internal/server/middleware"
	sessiondomain "vyre/backend/internal/session/domain"
)

// AuthService is the subset of service.AuthService the handlers call.
type AuthService interface {
	Login(ctx context.Context, email, password string, client service.ClientInfo) (*service.AuthResult, error)
	Register(ctx context.Context, in service.RegisterInput, client service.ClientInfo) (*service.RegisterResult, error)
	Refresh(ctx context.Context, refreshToken string) (*service.RefreshResult, error)
	Revoke(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	AcceptInvite(ctx context.Context, in service.AcceptInviteInput, client service.ClientInfo) (*service.AuthResult, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	RevokeSession(ctx context.Context, userID, sessionID string) error
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

// AuthHandler serves /auth/* and the session endpoints under /users/me.
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler returns an AuthHandler backed by svc.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CompanyName string `json:"companyName"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type acceptInviteRequest struct {
	Token     string `json:"token"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// authData is the body of a successful login, registration or invite acceptance.
type authData struct {
	AccessToken          string    `json:"accessToken"`
	RefreshToken         string    `json:"refreshToken"`
	AccessTokenExpiresAt time.Time `json:"accessTokenExpiresAt"`
	UserID               string    `json:"userId"`
	Email                string    `json:"email"`
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	Role                 string    `json:"role"`
	CompanyID            string    `json:"companyId,omitempty"`
}

func toAuthData(res *service.AuthResult) authData {
	return authData{
		AccessToken:          res.AccessToken,
		RefreshToken:         res.RefreshToken,
		AccessTokenExpiresAt: res.AccessTokenExpiresAt,
		UserID:               res.User.ID,
		Email:                res.User.Email,
		FirstName:            res.User.FirstName,
		LastName:             res.User.LastName,
		Role:                 string(res.User.Role),
	}
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{IPAddress: middleware.ClientIPFrom(r.Context()), UserAgent: r.UserAgent()}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	var errs []respond.FieldError
	if req.Email == "" {
		errs = append(errs, respond.FieldError{Field: "email", Message: "Email is required"})
	}
	if req.Password == "" {
		errs = append(errs, respond.FieldError{Field: "password", Message: "Password is required"})
	}
	if len(errs) > 0 {
		respond.Error(w, http.StatusBadRequest, "Validation failed", errs...)
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, clientInfo(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Login successful", toAuthData(res))
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
	}, clientInfo(r))
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyRegistered) {
			respond.Error(w, http.StatusBadRequest, "User already exists with this email")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	data := toAuthData(res.AuthResult)
	data.CompanyID = res.Company.ID
	respond.Success(w, http.StatusCreated, "Registration successful", data)
}

// RefreshToken handles POST /auth/refresh-token. Only a new access token is returned.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "Refresh token is required")
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			respond.Error(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Token refreshed successfully", map[string]any{
		"accessToken":          res.AccessToken,
		"accessTokenExpiresAt": res.AccessTokenExpiresAt,
		"userId":               res.User.ID,
		"email":                res.User.Email,
	})
}

// RevokeToken handles POST /auth/revoke-token.
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "Refresh token is required")
		return
	}
	if err := h.svc.Revoke(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			respond.Error(w, http.StatusBadRequest, "Invalid refresh token")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Token revoked successfully", nil)
}

// ForgotPassword handles POST /auth/forgot-password. The response is the same whether or not
// the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Password reset link sent to your email", nil)
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			respond.Error(w, http.StatusBadRequest, "Invalid or expired token")
			return
		}
		writeServiceError(w, r, err)
		return
	}
	respond.OK(w, "Password reset successful", nil)
}

// AcceptInvite handles POST /auth/accept-invite.
func (h *AuthHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req acceptInviteRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.AcceptInvite(r.Context(), service.AcceptInviteInput{
		Token:     req.Token,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, clientInfo(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			respond.Error(w, http.StatusBadRequest, "Invalid or expired invitation")
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			respond.Error(w, http.StatusBadRequest, "User already exists with this email")
		default:
			writeServiceError(w, r, err)
		}
		return
	}
	data := toAuthData(res)
	data.CompanyID = res.User.CompanyID
	respond.Success(w, http.StatusCreated, "Invitation accepted", data)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := respond.DecodeJSON(w, r, dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service errors to responses. Anything unrecognised is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, "Validation failed", respond.FieldError{Field: verr.Field, Message: verr.Err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrTooManyAttempts):
		respond.Error(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
	case errors.Is(err, service.ErrEmailAlreadyRegistered):
		respond.Error(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, service.ErrSamePassword):
		respond.Error(w, http.StatusBadRequest, "New password must be different from current password")
	case errors.Is(err, service.ErrSessionNotFound):
		respond.Error(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, service.ErrInvalidToken):
		respond.Error(w, http.StatusBadRequest, "Invalid or expired token")
	default:
		respond.Internal(w, r, err)
	}
}
