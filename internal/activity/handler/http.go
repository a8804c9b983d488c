// Package handler serves the company activity feed.
package handler

import (
	"context"
	"net/http"

	"vyre/backend/internal/activity"
	"vyre/backend/internal/activity/domain"
	"vyre/backend/internal/platform/rbac"
	"vyre/backend/internal/platform/respond"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Reader lists a company's activities, newest first.
type Reader interface {
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*domain.Activity, error)
}

// Handler serves GET /activities.
type Handler struct {
	reader Reader
}

// NewHandler returns an activity Handler.
func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

// List handles GET /activities?limit&offset for the caller's company.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, err := rbac.Caller(r.Context())
	if err != nil {
		rbac.WriteError(w, err)
		return
	}
	limit := respond.IntParam(r, "limit", defaultLimit)
	if limit == 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := respond.IntParam(r, "offset", 0)
	list, err := h.reader.ListByCompany(r.Context(), caller.CompanyID, limit, offset)
	if err != nil {
		respond.Internal(w, r, err)
		return
	}
	respond.OK(w, "Activities retrieved successfully", map[string]any{
		"activities": activity.Views(list),
		"limit":      limit,
		"offset":     offset,
	})
}
