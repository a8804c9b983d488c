package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vyre/backend/internal/company/domain"
	"vyre/backend/internal/db"
)

const companyColumns = `id, name, description, logo, website, industry, size, location,
	interview_default_duration, interview_default_location,
	notify_new_applicant, notify_interview_scheduled, notify_interview_completed, created_at, updated_at`

// PostgresRepository is a company Repository backed by Postgres.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a company repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the company for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	var (
		c    domain.Company
		size string
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.Logo, &c.Website, &c.Industry, &size, &c.Location,
		&c.InterviewPreferences.DefaultDuration, &c.InterviewPreferences.DefaultLocation,
		&c.NotificationPreferences.NewApplicant, &c.NotificationPreferences.InterviewScheduled,
		&c.NotificationPreferences.InterviewCompleted, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	c.Size = domain.Size(size)
	return &c, nil
}

// Create persists the company. The company must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Company) error {
	query := `
		INSERT INTO companies (` + companyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query, r.args(c)...)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the company. created_at is left as is.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Company) error {
	query := `
		UPDATE companies SET name = $2, description = $3, logo = $4, website = $5, industry = $6, size = $7,
			location = $8, interview_default_duration = $9, interview_default_location = $10,
			notify_new_applicant = $11, notify_interview_scheduled = $12, notify_interview_completed = $13,
			updated_at = $14
		WHERE id = $1
	`
	args := r.args(c)
	args = append(args[:13], c.UpdatedAt)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}

func (r *PostgresRepository) args(c *domain.Company) []any {
	return []any{
		c.ID, c.Name, c.Description, c.Logo, c.Website, c.Industry, string(c.Size), c.Location,
		c.InterviewPreferences.DefaultDuration, c.InterviewPreferences.DefaultLocation,
		c.NotificationPreferences.NewApplicant, c.NotificationPreferences.InterviewScheduled,
		c.NotificationPreferences.InterviewCompleted, c.CreatedAt, c.UpdatedAt,
	}
}
