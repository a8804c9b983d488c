package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vyre/backend/internal/db"
	"vyre/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, token_hash, expires_at, ip_address, user_agent, browser, os, created_at`

// PostgresRepository is a session Repository backed by Postgres.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the session. The session must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.IPAddress,
		s.Device.UserAgent, s.Device.Browser, s.Device.OS, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindActive returns the matching unexpired session, or nil if none.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindActive(ctx context.Context, userID, tokenHash string, now time.Time) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 AND token_hash = $2 AND expires_at > $3`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, userID, tokenHash, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListActive returns the user's unexpired sessions, newest first.
func (r *PostgresRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 AND expires_at > $2 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// DeleteByToken removes the session holding tokenHash for userID.
func (r *PostgresRepository) DeleteByToken(ctx context.Context, userID, tokenHash string) (bool, error) {
	return r.deleteOne(ctx, `DELETE FROM sessions WHERE user_id = $1 AND token_hash = $2`, userID, tokenHash)
}

// DeleteByID removes session sessionID if it belongs to userID.
func (r *PostgresRepository) DeleteByID(ctx context.Context, userID, sessionID string) (bool, error) {
	return r.deleteOne(ctx, `DELETE FROM sessions WHERE user_id = $1 AND id = $2`, userID, sessionID)
}

// DeleteAllByUser removes every session of userID.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpired removes sessions whose expiry is at or before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) deleteOne(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &s.IPAddress,
		&s.Device.UserAgent, &s.Device.Browser, &s.Device.OS, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}
