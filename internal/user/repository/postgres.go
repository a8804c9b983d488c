package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vyre/backend/internal/db"
	"vyre/backend/internal/user/domain"
)

// userColumns never includes password_hash or the reset token columns.
const userColumns = `id, company_id, email, first_name, last_name, role, position, department, avatar,
	phone_number, location, bio, skills, notify_email, notify_in_app, theme, is_active, last_login_at,
	created_at, updated_at`

// PostgresRepository is a user Repository backed by Postgres.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository that uses the given db (or tx) for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByEmail returns the user with the given email (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	return r.getOne(ctx, query, domain.NormalizeEmail(email))
}

// ConsumeResetToken clears an unexpired reset digest and returns its user, or nil if none matches.
// The conditional update lets only one caller redeem a given token.
func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	query := `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $2
		WHERE reset_token_hash = $1 AND reset_token_expires_at > $2
		RETURNING ` + userColumns
	u, err := r.getOne(ctx, query, tokenHash, now)
	if err != nil {
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	return u, nil
}

// GetCredentialsByEmail returns the user and password hash for email, or nil if not found.
func (r *PostgresRepository) GetCredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE lower(email) = $1`
	return r.getCredentials(ctx, query, domain.NormalizeEmail(email))
}

// GetCredentialsByID returns the user and password hash for id, or nil if not found.
func (r *PostgresRepository) GetCredentialsByID(ctx context.Context, id string) (*domain.Credentials, error) {
	query := `SELECT ` + userColumns + `, password_hash FROM users WHERE id = $1`
	return r.getCredentials(ctx, query, id)
}

// ListByCompany returns one page of the company's users sorted by name, and the total match count.
func (r *PostgresRepository) ListByCompany(ctx context.Context, companyID string, f ListFilter) ([]*domain.User, int, error) {
	where := `company_id = $1`
	args := []any{companyID}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		where += ` AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2 OR position ILIKE $2)`
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY first_name, last_name, id`
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return out, total, nil
}

// CountByRole returns how many users of the company hold role.
func (r *PostgresRepository) CountByRole(ctx context.Context, companyID string, role domain.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE company_id = $1 AND role = $2`, companyID, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}
	return n, nil
}

// Create persists the user with the given password hash. The user must have ID set.
// Returns ErrEmailTaken if the email is already registered.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User, passwordHash string) error {
	skills, err := marshalSkills(u.Skills)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO users (id, company_id, email, password_hash, first_name, last_name, role, position, department,
			avatar, phone_number, location, bio, skills, notify_email, notify_in_app, theme, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = r.db.ExecContext(ctx, query,
		u.ID, u.CompanyID, domain.NormalizeEmail(u.Email), passwordHash, u.FirstName, u.LastName, string(u.Role),
		u.Position, u.Department, u.Avatar, u.PhoneNumber, u.Location, u.Bio, skills,
		u.Preferences.NotifyEmail, u.Preferences.NotifyInApp, string(u.Preferences.Theme), u.IsActive,
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateProfile writes the profile fields of u. Email, role, password and company are not touched.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, u *domain.User) error {
	skills, err := marshalSkills(u.Skills)
	if err != nil {
		return err
	}
	query := `
		UPDATE users SET first_name = $2, last_name = $3, position = $4, department = $5, avatar = $6,
			phone_number = $7, location = $8, bio = $9, skills = $10, notify_email = $11, notify_in_app = $12,
			theme = $13, updated_at = $14
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Position, u.Department, u.Avatar, u.PhoneNumber, u.Location, u.Bio,
		skills, u.Preferences.NotifyEmail, u.Preferences.NotifyInApp, string(u.Preferences.Theme), u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// UpdateMembership sets the company-managed fields of a member.
func (r *PostgresRepository) UpdateMembership(ctx context.Context, id string, role domain.Role, department, position string) error {
	query := `UPDATE users SET role = $2, department = $3, position = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(role), department, position, time.Now().UTC()); err != nil {
		return fmt.Errorf("update user membership: %w", err)
	}
	return nil
}

// UpdatePassword stores a new password hash and clears the reset token.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users SET password_hash = $2, reset_token_hash = NULL, reset_token_expires_at = NULL, updated_at = $3
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

// SetResetToken stores a password-reset digest and its expiry, replacing any previous one.
func (r *PostgresRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token_hash = $2, reset_token_expires_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// TouchLastLogin records a successful login time.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// Delete removes the user. Sessions go with it via ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ClearExpiredResetTokens nulls reset digests whose expiry is before now.
func (r *PostgresRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users SET reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_expires_at IS NOT NULL AND reset_token_expires_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("clear expired reset tokens: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) getCredentials(ctx context.Context, query string, args ...any) (*domain.Credentials, error) {
	var hash string
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...), &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.Credentials{User: u, PasswordHash: hash}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser scans userColumns followed by any extra destinations.
func scanUser(row rowScanner, extra ...any) (*domain.User, error) {
	var (
		u         domain.User
		role      string
		theme     string
		skills    []byte
		lastLogin sql.NullTime
	)
	dest := []any{
		&u.ID, &u.CompanyID, &u.Email, &u.FirstName, &u.LastName, &role, &u.Position, &u.Department, &u.Avatar,
		&u.PhoneNumber, &u.Location, &u.Bio, &skills, &u.Preferences.NotifyEmail, &u.Preferences.NotifyInApp,
		&theme, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = domain.Role(role)
	u.Preferences.Theme = domain.Theme(theme)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	if len(skills) > 0 {
		if err := json.Unmarshal(skills, &u.Skills); err != nil {
			return nil, fmt.Errorf("decode skills: %w", err)
		}
	}
	return &u, nil
}

func marshalSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}
	return string(b), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
