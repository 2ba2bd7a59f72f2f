package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/yourorg/orderdesk/internal/domain"
)

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserRepository{db: db, logger: logger}
}

// Create inserts a user and their roles. A duplicate email surfaces as
// ConflictError; the first write wins.
func (r *PostgresUserRepository) Create(user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(query, user.ID, user.Name, user.Email, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return &domain.ConflictError{Message: "email already registered"}
		}
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range user.Roles {
		if err := r.GrantRole(user.ID, role); err != nil {
			return err
		}
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(id string) (*domain.User, error) {
	return r.getOne(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE id = $1`, id)
}

// GetByEmail retrieves a user by email
func (r *PostgresUserRepository) GetByEmail(email string) (*domain.User, error) {
	return r.getOne(`SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE email = $1`, email)
}

func (r *PostgresUserRepository) getOne(query string, arg interface{}) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRow(query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Message: "user not found"}
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := r.loadRoles(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update persists name, email, and password hash changes
func (r *PostgresUserRepository) Update(user *domain.User) error {
	query := `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, updated_at = now()
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.db.QueryRow(query, user.Name, user.Email, user.PasswordHash, user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{Message: "user not found"}
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return &domain.ConflictError{Message: "email already registered"}
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Delete removes the user and their roles
func (r *PostgresUserRepository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user roles: %w", err)
	}

	result, err := r.db.Exec(`DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Message: "user not found"}
	}
	return nil
}

// List returns one page of users matching the glob pattern over name or
// email. The pattern's "*" maps to SQL's "%" with ILIKE for
// case-insensitive matching.
func (r *PostgresUserRepository) List(page, limit int, pattern string) ([]*domain.User, bool, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	where := ""
	args := []interface{}{limit + 1, page * limit}
	if pattern != "" && pattern != "*" {
		where = `WHERE name ILIKE $3 OR email ILIKE $3`
		args = append(args, strings.ReplaceAll(pattern, "*", "%"))
	}

	query := fmt.Sprintf(`
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		%s
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, where)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, false, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	more := false
	if len(users) > limit {
		more = true
		users = users[:limit]
	}

	for _, user := range users {
		if err := r.loadRoles(user); err != nil {
			return nil, false, err
		}
	}
	return users, more, nil
}

// GrantRole adds a role to a user; granting an already-held role is a no-op
func (r *PostgresUserRepository) GrantRole(userID string, role domain.Role) error {
	query := `
		INSERT INTO user_roles (user_id, role, object_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	if _, err := r.db.Exec(query, userID, string(role.Kind), role.ObjectID); err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// RevokeRole removes a role from a user
func (r *PostgresUserRepository) RevokeRole(userID string, role domain.Role) error {
	query := `DELETE FROM user_roles WHERE user_id = $1 AND role = $2 AND object_id = $3`
	if _, err := r.db.Exec(query, userID, string(role.Kind), role.ObjectID); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	return nil
}

// RevokeScopedRoles removes a scoped role from every holder, used when the
// scoping object is deleted
func (r *PostgresUserRepository) RevokeScopedRoles(kind domain.RoleKind, objectID string) error {
	query := `DELETE FROM user_roles WHERE role = $1 AND object_id = $2`
	if _, err := r.db.Exec(query, string(kind), objectID); err != nil {
		return fmt.Errorf("failed to revoke scoped roles: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) loadRoles(user *domain.User) error {
	rows, err := r.db.Query(`SELECT role, object_id FROM user_roles WHERE user_id = $1 ORDER BY role, object_id`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	user.Roles = nil
	for rows.Next() {
		var kind, objectID string
		if err := rows.Scan(&kind, &objectID); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		user.Roles = append(user.Roles, domain.Role{Kind: domain.RoleKind(kind), ObjectID: objectID})
	}
	return rows.Err()
}
