package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/fulfillment"
	"github.com/yourorg/orderdesk/internal/observability/metrics"
	"github.com/yourorg/orderdesk/internal/security/authz"
	"github.com/yourorg/orderdesk/pkg/cache"
)

const menuCacheKey = "menu"
const menuCacheTTL = 30 * time.Second

// OrderService is the catalog and order ledger: the global menu, per-diner
// order history, and the handoff to the external order factory.
type OrderService struct {
	menu       domain.MenuRepository
	orders     domain.OrderRepository
	franchises domain.FranchiseRepository
	factory    *fulfillment.Client // nil disables fulfillment
	cache      *cache.Cache[[]*domain.MenuItem]
	pageSize   int
	logger     *slog.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	menu domain.MenuRepository,
	orders domain.OrderRepository,
	franchises domain.FranchiseRepository,
	factory *fulfillment.Client,
	pageSize int,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &OrderService{
		menu:       menu,
		orders:     orders,
		franchises: franchises,
		factory:    factory,
		cache:      cache.New[[]*domain.MenuItem](),
		pageSize:   pageSize,
		logger:     logger,
	}
}

// Menu returns the full catalog; reads are served from a short-lived cache
func (s *OrderService) Menu(ctx context.Context) ([]*domain.MenuItem, error) {
	if cached, ok := s.cache.Get(menuCacheKey); ok {
		return cached, nil
	}

	items, err := s.menu.List()
	if err != nil {
		return nil, err
	}
	s.cache.Set(menuCacheKey, items, menuCacheTTL)
	return items, nil
}

// AddMenuItem appends an item to the catalog and returns the updated menu
func (s *OrderService) AddMenuItem(ctx context.Context, item domain.MenuItem) ([]*domain.MenuItem, error) {
	if item.Title == "" || item.Price <= 0 {
		return nil, &domain.ValidationError{Message: "menu item title and a positive price are required"}
	}

	item.ID = uuid.NewString()
	if err := s.menu.Add(&item); err != nil {
		return nil, err
	}
	s.cache.Delete(menuCacheKey)

	s.logger.Info("menu item added",
		slog.String("item_id", item.ID),
		slog.String("title", item.Title),
	)
	return s.Menu(ctx)
}

// PlaceOrder persists an order for the diner, then submits it to the
// factory. The order is kept even when the factory call fails; the
// returned DependencyError reports the failure without rolling back
// (at-least-once handoff, not exactly-once).
func (s *OrderService) PlaceOrder(ctx context.Context, diner *authz.Actor, franchiseID, storeID string, items []domain.OrderItem) (*domain.Order, *fulfillment.Receipt, error) {
	if len(items) == 0 {
		metrics.ObserveOrderPlaced("invalid")
		return nil, nil, &domain.ValidationError{Message: "order requires at least one item"}
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		DinerID:     diner.UserID,
		FranchiseID: franchiseID,
		StoreID:     storeID,
		Items:       items,
		Date:        time.Now(),
	}

	if err := s.orders.Create(order); err != nil {
		metrics.ObserveOrderPlaced("failure")
		return nil, nil, err
	}

	total := order.Total()
	metrics.ObserveOrderPlaced("success")
	metrics.AddOrderRevenue(total)

	// Best-effort revenue rollup; the order stands regardless
	if err := s.franchises.AddStoreRevenue(storeID, total); err != nil {
		s.logger.Warn("failed to update store revenue",
			slog.String("store_id", storeID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("order placed",
		slog.String("order_id", order.ID),
		slog.String("diner_id", diner.UserID),
		slog.String("store_id", storeID),
		slog.Float64("total", total),
	)

	if s.factory == nil {
		return order, nil, nil
	}

	receipt, err := s.factory.Submit(ctx, order, fulfillment.Diner{
		ID:    diner.UserID,
		Name:  diner.Name,
		Email: diner.Email,
	})
	if err != nil {
		return order, nil, err
	}
	return order, receipt, nil
}

// Orders returns one page of the diner's ledger in insertion order
func (s *OrderService) Orders(ctx context.Context, dinerID string, page int) ([]*domain.Order, error) {
	return s.orders.ListByDiner(dinerID, page, s.pageSize)
}
