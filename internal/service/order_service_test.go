package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/fulfillment"
	"github.com/yourorg/orderdesk/internal/repository/memory"
	"github.com/yourorg/orderdesk/internal/security/authz"
)

func newOrderFixture(factory *fulfillment.Client) (*OrderService, *memory.FranchiseRepository) {
	franchiseRepo := memory.NewFranchiseRepository()
	return NewOrderService(
		memory.NewMenuRepository(),
		memory.NewOrderRepository(),
		franchiseRepo,
		factory,
		3,
		nil,
	), franchiseRepo
}

func testDiner() *authz.Actor {
	return &authz.Actor{
		UserID: "u-diner",
		Name:   "Ada Diner",
		Email:  "ada@example.com",
		Roles:  []domain.Role{{Kind: domain.RoleDiner}},
	}
}

func TestMenuAddAndList(t *testing.T) {
	ctx := context.Background()
	s, _ := newOrderFixture(nil)

	menu, err := s.Menu(ctx)
	if err != nil {
		t.Fatalf("menu failed: %v", err)
	}
	if len(menu) != 0 {
		t.Fatalf("expected empty catalog, got %d items", len(menu))
	}

	updated, err := s.AddMenuItem(ctx, domain.MenuItem{Title: "Veggie", Description: "Garden pizza", Price: 3.5})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(updated) != 1 || updated[0].ID == "" {
		t.Fatalf("expected updated menu with generated id, got %+v", updated)
	}

	// Append-only: a second add grows the catalog
	updated, err = s.AddMenuItem(ctx, domain.MenuItem{Title: "Pepperoni", Price: 4.2})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(updated) != 2 {
		t.Fatalf("expected 2 items, got %d", len(updated))
	}
}

func TestAddMenuItemValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newOrderFixture(nil)

	var validationErr *domain.ValidationError
	if _, err := s.AddMenuItem(ctx, domain.MenuItem{Title: "", Price: 1}); !errors.As(err, &validationErr) {
		t.Errorf("expected validation error for empty title, got %v", err)
	}
	if _, err := s.AddMenuItem(ctx, domain.MenuItem{Title: "Free", Price: 0}); !errors.As(err, &validationErr) {
		t.Errorf("expected validation error for non-positive price, got %v", err)
	}
}

func TestMenuCacheInvalidatedOnWrite(t *testing.T) {
	ctx := context.Background()
	s, _ := newOrderFixture(nil)

	s.AddMenuItem(ctx, domain.MenuItem{Title: "Veggie", Price: 3.5})
	if menu, _ := s.Menu(ctx); len(menu) != 1 {
		t.Fatalf("expected 1 item, got %d", len(menu))
	}

	// A write after a cached read must be visible immediately
	menu, err := s.AddMenuItem(ctx, domain.MenuItem{Title: "Pepperoni", Price: 4.2})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(menu) != 2 {
		t.Fatalf("expected cache invalidation to surface the new item, got %d", len(menu))
	}
}

func TestPlaceOrderWithoutFactory(t *testing.T) {
	ctx := context.Background()
	s, franchiseRepo := newOrderFixture(nil)
	franchiseRepo.Create(&domain.Franchise{ID: "f-1", Name: "PizzaPlanet", Stores: []domain.Store{{ID: "s-1", Name: "Downtown"}}})

	items := []domain.OrderItem{{MenuID: "m-1", Description: "Veggie", Price: 3.5}}
	order, receipt, err := s.PlaceOrder(ctx, testDiner(), "f-1", "s-1", items)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if receipt != nil {
		t.Error("expected no receipt with fulfillment disabled")
	}
	if order.ID == "" || order.DinerID != "u-diner" {
		t.Errorf("unexpected order: %+v", order)
	}

	orders, err := s.Orders(ctx, "u-diner", 0)
	if err != nil {
		t.Fatalf("orders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != order.ID {
		t.Fatalf("expected the placed order on the ledger, got %d orders", len(orders))
	}
}

func TestPlaceOrderRequiresItems(t *testing.T) {
	s, _ := newOrderFixture(nil)
	_, _, err := s.PlaceOrder(context.Background(), testDiner(), "f-1", "s-1", nil)
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlaceOrderSubmitsToFactory(t *testing.T) {
	ctx := context.Background()

	var gotAuth string
	factorySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{
			"jwt":       "tracking-token",
			"reportUrl": "https://factory.example.com/report/1",
		})
	}))
	defer factorySrv.Close()

	factory := fulfillment.NewClient(factorySrv.URL, "factory-key", 2*time.Second, nil)
	s, franchiseRepo := newOrderFixture(factory)
	franchiseRepo.Create(&domain.Franchise{ID: "f-1", Name: "PizzaPlanet", Stores: []domain.Store{{ID: "s-1", Name: "Downtown"}}})

	items := []domain.OrderItem{{MenuID: "m-1", Description: "Veggie", Price: 3.5}}
	order, receipt, err := s.PlaceOrder(ctx, testDiner(), "f-1", "s-1", items)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if receipt == nil || receipt.TrackingToken != "tracking-token" {
		t.Fatalf("expected factory receipt, got %+v", receipt)
	}
	if gotAuth != "Bearer factory-key" {
		t.Errorf("expected api key auth, got %q", gotAuth)
	}
	if order == nil || order.ID == "" {
		t.Fatal("expected persisted order")
	}
}

func TestPlaceOrderKeepsOrderOnFactoryFailure(t *testing.T) {
	ctx := context.Background()

	factorySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer factorySrv.Close()

	factory := fulfillment.NewClient(factorySrv.URL, "", 2*time.Second, nil)
	s, franchiseRepo := newOrderFixture(factory)
	franchiseRepo.Create(&domain.Franchise{ID: "f-1", Name: "PizzaPlanet", Stores: []domain.Store{{ID: "s-1", Name: "Downtown"}}})

	items := []domain.OrderItem{{MenuID: "m-1", Description: "Veggie", Price: 3.5}}
	order, receipt, err := s.PlaceOrder(ctx, testDiner(), "f-1", "s-1", items)

	var depErr *domain.DependencyError
	if !errors.As(err, &depErr) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if receipt != nil {
		t.Error("expected no receipt on failure")
	}
	if order == nil {
		t.Fatal("expected the persisted order back despite the failure")
	}

	// No rollback: the order stays on the ledger
	orders, _ := s.Orders(ctx, "u-diner", 0)
	if len(orders) != 1 {
		t.Fatalf("expected the order to survive the fulfillment failure, got %d", len(orders))
	}
}

func TestPlaceOrderRollsUpStoreRevenue(t *testing.T) {
	ctx := context.Background()
	s, franchiseRepo := newOrderFixture(nil)
	franchiseRepo.Create(&domain.Franchise{ID: "f-1", Name: "PizzaPlanet", Stores: []domain.Store{{ID: "s-1", Name: "Downtown"}}})

	items := []domain.OrderItem{
		{MenuID: "m-1", Description: "Veggie", Price: 3.5},
		{MenuID: "m-2", Description: "Pepperoni", Price: 4.5},
	}
	if _, _, err := s.PlaceOrder(ctx, testDiner(), "f-1", "s-1", items); err != nil {
		t.Fatalf("place failed: %v", err)
	}

	franchise, err := franchiseRepo.GetByID("f-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if franchise.Stores[0].TotalRevenue != 8 {
		t.Errorf("expected store revenue 8, got %v", franchise.Stores[0].TotalRevenue)
	}
}

func TestOrdersPagination(t *testing.T) {
	ctx := context.Background()
	s, franchiseRepo := newOrderFixture(nil)
	franchiseRepo.Create(&domain.Franchise{ID: "f-1", Name: "PizzaPlanet", Stores: []domain.Store{{ID: "s-1", Name: "Downtown"}}})

	items := []domain.OrderItem{{MenuID: "m-1", Description: "Veggie", Price: 3.5}}
	placed := []string{}
	for i := 0; i < 5; i++ {
		order, _, err := s.PlaceOrder(ctx, testDiner(), "f-1", "s-1", items)
		if err != nil {
			t.Fatalf("place failed: %v", err)
		}
		placed = append(placed, order.ID)
	}

	// Page size is 3; pages reconstruct the ledger in insertion order
	page0, _ := s.Orders(ctx, "u-diner", 0)
	page1, _ := s.Orders(ctx, "u-diner", 1)
	if len(page0) != 3 || len(page1) != 2 {
		t.Fatalf("expected pages of 3 and 2, got %d and %d", len(page0), len(page1))
	}
	got := []string{}
	for _, o := range append(page0, page1...) {
		got = append(got, o.ID)
	}
	for i, id := range placed {
		if got[i] != id {
			t.Fatalf("expected insertion order preserved, got %v want %v", got, placed)
		}
	}

	// Another diner's ledger is empty
	other, _ := s.Orders(ctx, "u-other", 0)
	if len(other) != 0 {
		t.Errorf("expected empty ledger for other diner, got %d", len(other))
	}
}
