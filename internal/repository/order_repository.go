package repository

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/yourorg/orderdesk/internal/domain"
)

// PostgresMenuRepository implements domain.MenuRepository using PostgreSQL.
// The catalog is append-only.
type PostgresMenuRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresMenuRepository creates a new menu repository
func NewPostgresMenuRepository(db *sql.DB, logger *slog.Logger) *PostgresMenuRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresMenuRepository{db: db, logger: logger}
}

// List returns the full catalog in insertion order
func (r *PostgresMenuRepository) List() ([]*domain.MenuItem, error) {
	query := `
		SELECT id, title, description, image, price
		FROM menu_items
		ORDER BY created_at, id
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu: %w", err)
	}
	defer rows.Close()

	items := []*domain.MenuItem{}
	for rows.Next() {
		item := &domain.MenuItem{}
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Image, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Add appends an item to the catalog
func (r *PostgresMenuRepository) Add(item *domain.MenuItem) error {
	query := `
		INSERT INTO menu_items (id, title, description, image, price)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(query, item.ID, item.Title, item.Description, item.Image, item.Price); err != nil {
		r.logger.Error("failed to add menu item",
			slog.String("title", item.Title),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to add menu item: %w", err)
	}
	return nil
}

// PostgresOrderRepository implements domain.OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrderRepository creates a new order repository
func NewPostgresOrderRepository(db *sql.DB, logger *slog.Logger) *PostgresOrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOrderRepository{db: db, logger: logger}
}

// Create appends an order and its items to the diner's ledger
func (r *PostgresOrderRepository) Create(order *domain.Order) error {
	query := `
		INSERT INTO orders (id, diner_id, franchise_id, store_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.Exec(query, order.ID, order.DinerID, order.FranchiseID, order.StoreID, order.Date); err != nil {
		r.logger.Error("failed to create order",
			slog.String("diner_id", order.DinerID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create order: %w", err)
	}

	for i, item := range order.Items {
		itemQuery := `
			INSERT INTO order_items (order_id, seq, menu_id, description, price)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := r.db.Exec(itemQuery, order.ID, i, item.MenuID, item.Description, item.Price); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

// ListByDiner returns one page of the diner's orders in insertion order
func (r *PostgresOrderRepository) ListByDiner(dinerID string, page, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	query := `
		SELECT id, diner_id, franchise_id, store_id, created_at
		FROM orders
		WHERE diner_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(query, dinerID, limit, page*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o := &domain.Order{}
		if err := rows.Scan(&o.ID, &o.DinerID, &o.FranchiseID, &o.StoreID, &o.Date); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if err := r.loadItems(o); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PostgresOrderRepository) loadItems(order *domain.Order) error {
	query := `
		SELECT menu_id, description, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY seq
	`
	rows, err := r.db.Query(query, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	order.Items = []domain.OrderItem{}
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.MenuID, &item.Description, &item.Price); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}
