package domain

import "time"

// MenuItem belongs to the global catalog; the catalog is append-only
type MenuItem struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}

// OrderItem is one line of an order
type OrderItem struct {
	MenuID      string  `json:"menuId"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Order is immutable once created and owned by the diner who placed it
type Order struct {
	ID          string      `json:"id"`
	DinerID     string      `json:"-"`
	FranchiseID string      `json:"franchiseId"`
	StoreID     string      `json:"storeId"`
	Items       []OrderItem `json:"items"`
	Date        time.Time   `json:"date"`
}

// Total returns the sum of the order's item prices
func (o *Order) Total() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.Price
	}
	return sum
}

// MenuRepository defines data access for the global menu catalog
type MenuRepository interface {
	List() ([]*MenuItem, error)
	Add(item *MenuItem) error
}

// OrderRepository defines data access for the per-diner order ledger
type OrderRepository interface {
	Create(order *Order) error
	// ListByDiner returns one zero-based page of the diner's orders in
	// insertion order.
	ListByDiner(dinerID string, page, limit int) ([]*Order, error)
}
