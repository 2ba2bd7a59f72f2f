package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/yourorg/orderdesk/internal/domain"
)

func newMockRepo(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresUserRepository(db, nil), mock
}

func TestCreateUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("u-1", "Ada", "ada@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs("u-1", "diner", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &domain.User{
		ID:           "u-1",
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		Roles:        []domain.Role{{Kind: domain.RoleDiner}},
	}
	if err := repo.Create(user); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected created_at populated from the returning clause")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("u-2", "Imposter", "ada@example.com", "hash").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(&domain.User{ID: "u-2", Name: "Imposter", Email: "ada@example.com", PasswordHash: "hash"})
	var conflictErr *domain.ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestGetByIDLoadsRoles(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}).
			AddRow("u-1", "Ada", "ada@example.com", "hash", now, now))
	mock.ExpectQuery(`SELECT role, object_id FROM user_roles`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role", "object_id"}).
			AddRow("diner", "").
			AddRow("franchisee", "f-1"))

	user, err := repo.GetByID("u-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(user.Roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(user.Roles))
	}
	if !user.HasScopedRole(domain.RoleFranchisee, "f-1") {
		t.Error("expected scoped franchisee role")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID("missing")
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM user_roles WHERE user_id`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete("u-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
}

func TestDeleteUserNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM user_roles WHERE user_id`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM users WHERE id`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete("missing")
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListDetectsMorePages(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	// limit 2 queries for 3 rows; the extra row signals another page
	userRows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}).
		AddRow("u-1", "Alice", "alice@example.com", "h", now, now).
		AddRow("u-2", "Bob", "bob@example.com", "h", now, now).
		AddRow("u-3", "Carol", "carol@example.com", "h", now, now)
	mock.ExpectQuery(`SELECT id, name, email, password_hash, created_at, updated_at\s+FROM users`).
		WithArgs(3, 0).
		WillReturnRows(userRows)
	for _, id := range []string{"u-1", "u-2"} {
		mock.ExpectQuery(`SELECT role, object_id FROM user_roles`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"role", "object_id"}).AddRow("diner", ""))
	}

	users, more, err := repo.List(0, 2, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 2 || !more {
		t.Fatalf("expected 2 users with more=true, got %d more=%v", len(users), more)
	}
}

func TestListGlobPatternBecomesILike(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery(`WHERE name ILIKE \$3 OR email ILIKE \$3`).
		WithArgs(11, 0, "%ali%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at", "updated_at"}).
			AddRow("u-1", "Alice", "alice@example.com", "h", now, now))
	mock.ExpectQuery(`SELECT role, object_id FROM user_roles`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role", "object_id"}))

	users, more, err := repo.List(0, 10, "*ali*")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(users) != 1 || more {
		t.Fatalf("expected 1 user, got %d more=%v", len(users), more)
	}
}

func TestGrantRoleIdempotent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs("u-1", "franchisee", "f-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO user_roles`).
		WithArgs("u-1", "franchisee", "f-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	role := domain.Role{Kind: domain.RoleFranchisee, ObjectID: "f-1"}
	if err := repo.GrantRole("u-1", role); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := repo.GrantRole("u-1", role); err != nil {
		t.Fatalf("second grant failed: %v", err)
	}
}

func TestRevokeScopedRoles(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM user_roles WHERE role = \$1 AND object_id = \$2`).
		WithArgs("franchisee", "f-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.RevokeScopedRoles(domain.RoleFranchisee, "f-1"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
