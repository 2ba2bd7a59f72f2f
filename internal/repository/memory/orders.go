package memory

import (
	"sync"

	"github.com/yourorg/orderdesk/internal/domain"
)

// MenuRepository is an in-memory domain.MenuRepository
type MenuRepository struct {
	mu    sync.RWMutex
	items []*domain.MenuItem
}

func NewMenuRepository() *MenuRepository {
	return &MenuRepository{}
}

func (r *MenuRepository) List() ([]*domain.MenuItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.MenuItem, 0, len(r.items))
	for _, item := range r.items {
		c := *item
		out = append(out, &c)
	}
	return out, nil
}

func (r *MenuRepository) Add(item *domain.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *item
	r.items = append(r.items, &c)
	return nil
}

// OrderRepository is an in-memory domain.OrderRepository keeping each
// diner's ledger in insertion order
type OrderRepository struct {
	mu      sync.RWMutex
	byDiner map[string][]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byDiner: map[string][]*domain.Order{}}
}

func (r *OrderRepository) Create(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *order
	c.Items = append([]domain.OrderItem(nil), order.Items...)
	r.byDiner[order.DinerID] = append(r.byDiner[order.DinerID], &c)
	return nil
}

func (r *OrderRepository) ListByDiner(dinerID string, page, limit int) ([]*domain.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ledger := r.byDiner[dinerID]
	start := page * limit
	if start >= len(ledger) {
		return []*domain.Order{}, nil
	}
	end := start + limit
	if end > len(ledger) {
		end = len(ledger)
	}

	out := make([]*domain.Order, 0, end-start)
	for _, o := range ledger[start:end] {
		c := *o
		c.Items = append([]domain.OrderItem(nil), o.Items...)
		out = append(out, &c)
	}
	return out, nil
}
