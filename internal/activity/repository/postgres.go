package repository

import (
	"context"
	"database/sql"
	"fmt"

	"vyre/backend/internal/activity/domain"
	"vyre/backend/internal/db"
)

const activityColumns = `id, company_id, user_id, action, entity_type, entity_id, description, details, created_at`

// PostgresRepository is an activity Repository backed by Postgres.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an activity repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the activity. The activity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Activity) error {
	query := `
		INSERT INTO activities (` + activityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	uid := sql.NullString{String: a.UserID, Valid: a.UserID != ""}
	var details any
	if len(a.Details) > 0 {
		details = string(a.Details)
	}
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.CompanyID, uid, string(a.Action), string(a.EntityType), a.EntityID, a.Description, details, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// ListByCompany returns the company's activities, paginated by limit and offset.
func (r *PostgresRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE company_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, companyID, limit, offset)
}

// ListByUser returns the user's most recent activities.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, userID, limit)
}

// CountByUser returns how many activities the user has recorded.
func (r *PostgresRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM activities WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Activity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*domain.Activity
	for rows.Next() {
		var (
			a          domain.Activity
			uid        sql.NullString
			action     string
			entityType string
			details    []byte
		)
		if err := rows.Scan(&a.ID, &a.CompanyID, &uid, &action, &entityType, &a.EntityID, &a.Description, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.UserID = uid.String
		a.Action = domain.Action(action)
		a.EntityType = domain.EntityType(entityType)
		a.Details = details
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}
