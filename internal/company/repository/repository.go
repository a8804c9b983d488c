package repository

import (
	"context"

	"vyre/backend/internal/company/domain"
)

// Repository defines persistence for companies. GetByID returns (nil, nil) when not found.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	Create(ctx context.Context, c *domain.Company) error
	Update(ctx context.Context, c *domain.Company) error
}
