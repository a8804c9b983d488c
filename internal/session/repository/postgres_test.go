package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"vyre/backend/internal/session/domain"
)

var sessionCols = []string{"id", "user_id", "token_hash", "expires_at", "ip_address", "user_agent", "browser", "os", "created_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	s := &domain.Session{
		ID: "s1", UserID: "u1", TokenHash: "digest", ExpiresAt: now.Add(time.Hour), IPAddress: "10.0.0.1",
		Device: domain.Device{UserAgent: "ua", Browser: "Chrome 120", OS: "Linux"}, CreatedAt: now,
	}
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+sessions\b.*VALUES\s*\(\$1,.*\$9\)\s*$`).
		WithArgs("s1", "u1", "digest", s.ExpiresAt, "10.0.0.1", "ua", "Chrome 120", "Linux", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO sessions`).WillReturnError(errors.New("db down"))

	if err := repo.Create(context.Background(), &domain.Session{ID: "s1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFindActive_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	mock.ExpectQuery(`FROM sessions WHERE user_id = \$1 AND token_hash = \$2 AND expires_at > \$3$`).
		WithArgs("u1", "digest", now).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s1", "u1", "digest", exp, "ip", "ua", "Chrome 1", "Linux", now))

	s, err := repo.FindActive(context.Background(), "u1", "digest", now)
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if s == nil || s.ID != "s1" || !s.ExpiresAt.Equal(exp) || s.Device.Browser != "Chrome 1" {
		t.Fatalf("unexpected session: %+v", s)
	}
}

func TestFindActive_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sessions WHERE user_id = \$1`).WillReturnError(sql.ErrNoRows)

	s, err := repo.FindActive(context.Background(), "u1", "digest", time.Now())
	if err != nil || s != nil {
		t.Fatalf("want (nil, nil), got (%+v, %v)", s, err)
	}
}

func TestFindActive_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM sessions`).WillReturnError(errors.New("db down"))

	if _, err := repo.FindActive(context.Background(), "u1", "digest", time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestListActive(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM sessions WHERE user_id = \$1 AND expires_at > \$2 ORDER BY created_at DESC$`).
		WithArgs("u1", now).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("s2", "u1", "d2", now.Add(time.Hour), "", "", "Unknown", "Unknown", now).
			AddRow("s1", "u1", "d1", now.Add(time.Hour), "", "", "Unknown", "Unknown", now.Add(-time.Minute)))

	list, err := repo.ListActive(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(list) != 2 || list[0].ID != "s2" {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestDeleteByToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1 AND token_hash = \$2`).
		WithArgs("u1", "digest").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1 AND token_hash = \$2`).
		WithArgs("u1", "digest").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteByToken(context.Background(), "u1", "digest")
	if err != nil || !removed {
		t.Fatalf("first delete: removed=%v err=%v", removed, err)
	}
	removed, err = repo.DeleteByToken(context.Background(), "u1", "digest")
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}
}

func TestDeleteByID_ScopedToUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1 AND id = \$2`).
		WithArgs("u2", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteByID(context.Background(), "u2", "s1")
	if err != nil || removed {
		t.Fatalf("removed=%v err=%v", removed, err)
	}
}

func TestDeleteAllByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1$`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteAllByUser(context.Background(), "u1")
	if err != nil || n != 3 {
		t.Fatalf("DeleteAllByUser = %d, %v", n, err)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`DELETE FROM sessions WHERE expires_at <= \$1`).WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil || n != 7 {
		t.Fatalf("DeleteExpired = %d, %v", n, err)
	}
}
