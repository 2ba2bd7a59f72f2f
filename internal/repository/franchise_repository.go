package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/orderdesk/internal/domain"
)

// PostgresFranchiseRepository implements domain.FranchiseRepository using
// PostgreSQL
type PostgresFranchiseRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresFranchiseRepository creates a new franchise repository
func NewPostgresFranchiseRepository(db *sql.DB, logger *slog.Logger) *PostgresFranchiseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFranchiseRepository{db: db, logger: logger}
}

// Create inserts a franchise and its admin links
func (r *PostgresFranchiseRepository) Create(franchise *domain.Franchise) error {
	query := `
		INSERT INTO franchises (id, name)
		VALUES ($1, $2)
		RETURNING created_at
	`
	if err := r.db.QueryRow(query, franchise.ID, franchise.Name).Scan(&franchise.CreatedAt); err != nil {
		r.logger.Error("failed to create franchise",
			slog.String("name", franchise.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create franchise: %w", err)
	}

	for _, admin := range franchise.Admins {
		adminQuery := `
			INSERT INTO franchise_admins (franchise_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`
		if _, err := r.db.Exec(adminQuery, franchise.ID, admin.ID); err != nil {
			return fmt.Errorf("failed to link franchise admin: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a franchise with its admins and stores
func (r *PostgresFranchiseRepository) GetByID(id string) (*domain.Franchise, error) {
	f := &domain.Franchise{}
	query := `SELECT id, name, created_at FROM franchises WHERE id = $1`
	err := r.db.QueryRow(query, id).Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Message: "franchise not found"}
		}
		return nil, fmt.Errorf("failed to get franchise: %w", err)
	}
	if err := r.hydrate(f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns one page of franchises whose name contains nameFilter.
// Containment is case-sensitive; this is a documented quirk of the listing
// contract, not an oversight.
func (r *PostgresFranchiseRepository) List(page, limit int, nameFilter string) ([]*domain.Franchise, bool, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	where := ""
	args := []interface{}{limit + 1, page * limit}
	if nameFilter != "" && nameFilter != "*" {
		where = `WHERE name LIKE '%' || $3 || '%'`
		args = append(args, nameFilter)
	}

	query := fmt.Sprintf(`
		SELECT id, name, created_at
		FROM franchises
		%s
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, where)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list franchises: %w", err)
	}
	defer rows.Close()

	var franchises []*domain.Franchise
	for rows.Next() {
		f := &domain.Franchise{}
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, false, fmt.Errorf("failed to scan franchise: %w", err)
		}
		franchises = append(franchises, f)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	more := false
	if len(franchises) > limit {
		more = true
		franchises = franchises[:limit]
	}

	for _, f := range franchises {
		if err := r.hydrate(f); err != nil {
			return nil, false, err
		}
	}
	return franchises, more, nil
}

// ListForUser returns the franchises administered by userID
func (r *PostgresFranchiseRepository) ListForUser(userID string) ([]*domain.Franchise, error) {
	query := `
		SELECT f.id, f.name, f.created_at
		FROM franchises f
		JOIN franchise_admins fa ON fa.franchise_id = f.id
		WHERE fa.user_id = $1
		ORDER BY f.created_at, f.id
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user franchises: %w", err)
	}
	defer rows.Close()

	franchises := []*domain.Franchise{}
	for rows.Next() {
		f := &domain.Franchise{}
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan franchise: %w", err)
		}
		franchises = append(franchises, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, f := range franchises {
		if err := r.hydrate(f); err != nil {
			return nil, err
		}
	}
	return franchises, nil
}

// Delete removes the franchise, its stores, and its admin links. Orders
// referencing the franchise are intentionally left in place.
func (r *PostgresFranchiseRepository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM stores WHERE franchise_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete franchise stores: %w", err)
	}
	if _, err := r.db.Exec(`DELETE FROM franchise_admins WHERE franchise_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete franchise admins: %w", err)
	}
	if _, err := r.db.Exec(`DELETE FROM franchises WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete franchise: %w", err)
	}
	return nil
}

// CreateStore inserts a store under an existing franchise
func (r *PostgresFranchiseRepository) CreateStore(store *domain.Store) error {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM franchises WHERE id = $1)`, store.FranchiseID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check franchise: %w", err)
	}
	if !exists {
		return &domain.NotFoundError{Message: "franchise not found"}
	}

	query := `INSERT INTO stores (id, franchise_id, name) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(query, store.ID, store.FranchiseID, store.Name); err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	return nil
}

// DeleteStore removes a store; deleting an absent store is a no-op
func (r *PostgresFranchiseRepository) DeleteStore(franchiseID, storeID string) error {
	query := `DELETE FROM stores WHERE id = $1 AND franchise_id = $2`
	if _, err := r.db.Exec(query, storeID, franchiseID); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	return nil
}

// AddStoreRevenue accumulates revenue on a store
func (r *PostgresFranchiseRepository) AddStoreRevenue(storeID string, amount float64) error {
	query := `UPDATE stores SET total_revenue = total_revenue + $1 WHERE id = $2`
	if _, err := r.db.Exec(query, amount, storeID); err != nil {
		return fmt.Errorf("failed to add store revenue: %w", err)
	}
	return nil
}

// hydrate fills in the franchise's admin and store sets
func (r *PostgresFranchiseRepository) hydrate(f *domain.Franchise) error {
	adminQuery := `
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN franchise_admins fa ON fa.user_id = u.id
		WHERE fa.franchise_id = $1
		ORDER BY u.created_at, u.id
	`
	rows, err := r.db.Query(adminQuery, f.ID)
	if err != nil {
		return fmt.Errorf("failed to load franchise admins: %w", err)
	}
	defer rows.Close()

	f.Admins = []domain.FranchiseAdmin{}
	for rows.Next() {
		var a domain.FranchiseAdmin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email); err != nil {
			return fmt.Errorf("failed to scan franchise admin: %w", err)
		}
		f.Admins = append(f.Admins, a)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	storeQuery := `
		SELECT id, franchise_id, name, total_revenue
		FROM stores
		WHERE franchise_id = $1
		ORDER BY id
	`
	storeRows, err := r.db.Query(storeQuery, f.ID)
	if err != nil {
		return fmt.Errorf("failed to load stores: %w", err)
	}
	defer storeRows.Close()

	f.Stores = []domain.Store{}
	for storeRows.Next() {
		var s domain.Store
		if err := storeRows.Scan(&s.ID, &s.FranchiseID, &s.Name, &s.TotalRevenue); err != nil {
			return fmt.Errorf("failed to scan store: %w", err)
		}
		f.Stores = append(f.Stores, s)
	}
	return storeRows.Err()
}
