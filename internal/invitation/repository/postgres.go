package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vyre/backend/internal/db"
	"vyre/backend/internal/invitation/domain"
	userdomain "vyre/backend/internal/user/domain"
)

// PostgresRepository is an invitation Repository backed by Postgres.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an invitation repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the invitation. The invitation must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (id, company_id, email, role, token_hash, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	invitedBy := sql.NullString{String: inv.InvitedBy, Valid: inv.InvitedBy != ""}
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.CompanyID, userdomain.NormalizeEmail(inv.Email), string(inv.Role), inv.TokenHash,
		invitedBy, inv.ExpiresAt, inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

// FindPending returns the pending invitation for tokenHash, or nil if none.
func (r *PostgresRepository) FindPending(ctx context.Context, tokenHash string, now time.Time) (*domain.Invitation, error) {
	query := `
		SELECT id, company_id, email, role, token_hash, invited_by, expires_at, created_at
		FROM invitations
		WHERE token_hash = $1 AND accepted_at IS NULL AND expires_at > $2
	`
	var (
		inv       domain.Invitation
		role      string
		invitedBy sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, tokenHash, now).Scan(
		&inv.ID, &inv.CompanyID, &inv.Email, &role, &inv.TokenHash, &invitedBy, &inv.ExpiresAt, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	inv.Role = userdomain.Role(role)
	inv.InvitedBy = invitedBy.String
	return &inv, nil
}

// MarkAccepted sets accepted_at if it is still unset.
func (r *PostgresRepository) MarkAccepted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE invitations SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("accept invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteExpired removes unaccepted invitations whose expiry is at or before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE accepted_at IS NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired invitations: %w", err)
	}
	return res.RowsAffected()
}
