package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"vyre/backend/internal/invitation/domain"
	userdomain "vyre/backend/internal/user/domain"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	inv := &domain.Invitation{
		ID: "i1", CompanyID: "c1", Email: "New@Acme.test", Role: userdomain.RoleRecruiter, TokenHash: "digest",
		InvitedBy: "u1", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}
	mock.ExpectExec(`(?s)INSERT INTO invitations .*VALUES \(\$1,.*\$8\)`).
		WithArgs("i1", "c1", "new@acme.test", "recruiter", "digest", "u1", inv.ExpiresAt, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), inv); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindPending(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	cols := []string{"id", "company_id", "email", "role", "token_hash", "invited_by", "expires_at", "created_at"}
	mock.ExpectQuery(`(?s)FROM invitations\s+WHERE token_hash = \$1 AND accepted_at IS NULL AND expires_at > \$2`).
		WithArgs("digest", now).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("i1", "c1", "new@acme.test", "interviewer", "digest", nil, now.Add(time.Hour), now))

	inv, err := repo.FindPending(context.Background(), "digest", now)
	if err != nil {
		t.Fatalf("FindPending: %v", err)
	}
	if inv == nil || inv.Role != userdomain.RoleInterviewer || inv.InvitedBy != "" {
		t.Fatalf("unexpected invitation: %+v", inv)
	}
}

func TestFindPending_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM invitations`).WillReturnError(sql.ErrNoRows)

	inv, err := repo.FindPending(context.Background(), "digest", time.Now())
	if err != nil || inv != nil {
		t.Fatalf("want (nil, nil), got (%+v, %v)", inv, err)
	}
}

func TestMarkAccepted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE invitations SET accepted_at = \$2 WHERE id = \$1 AND accepted_at IS NULL`).
		WithArgs("i1", now).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE invitations SET accepted_at`).
		WithArgs("i1", now).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkAccepted(context.Background(), "i1", now)
	if err != nil || !ok {
		t.Fatalf("first accept: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkAccepted(context.Background(), "i1", now)
	if err != nil || ok {
		t.Fatalf("second accept: ok=%v err=%v", ok, err)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(`DELETE FROM invitations WHERE accepted_at IS NULL AND expires_at <= \$1`).
		WithArgs(now).WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil || n != 2 {
		t.Fatalf("DeleteExpired = %d, %v", n, err)
	}
}
