package repository

import (
	"context"

	"vyre/backend/internal/activity/domain"
)

// Repository defines persistence for activities. Listings are newest first.
type Repository interface {
	Create(ctx context.Context, a *domain.Activity) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*domain.Activity, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Activity, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}
