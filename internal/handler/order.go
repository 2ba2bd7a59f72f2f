package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/authz"
	"github.com/yourorg/orderdesk/internal/security/middleware"
	"github.com/yourorg/orderdesk/internal/service"
)

// AddMenuItemRequest carries a new catalog entry
type AddMenuItemRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Price       float64 `json:"price"`
}

// PlaceOrderRequest carries a diner's order
type PlaceOrderRequest struct {
	FranchiseID string             `json:"franchiseId"`
	StoreID     string             `json:"storeId"`
	Items       []domain.OrderItem `json:"items"`
}

// PlaceOrderResponse is the order plus the factory's tracking artifact,
// absent when fulfillment is disabled.
type PlaceOrderResponse struct {
	Order         *domain.Order `json:"order"`
	TrackingToken string        `json:"jwt,omitempty"`
	ReportURL     string        `json:"reportUrl,omitempty"`
}

// OrderHistoryResponse is one page of a diner's ledger
type OrderHistoryResponse struct {
	DinerID string          `json:"dinerId"`
	Orders  []*domain.Order `json:"orders"`
	Page    int             `json:"page"`
}

// OrderHandler serves the menu catalog and the order ledger
type OrderHandler struct {
	orders *service.OrderService
	audit  *audit.Logger
	logger *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, auditLog *audit.Logger, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		orders: orders,
		audit:  auditLog,
		logger: logger,
	}
}

// Menu handles GET /api/order/menu. The catalog is public.
func (h *OrderHandler) Menu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.orders.Menu(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, menu)
}

// AddMenuItem handles PUT /api/order/menu
func (h *OrderHandler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.WriteMenu, authz.Target{}); err != nil {
		h.audit.LogDenied(r.Context(), actorID(actor), "menu write")
		writeDenied(w, err, "unable to add menu item")
		return
	}

	var req AddMenuItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	menu, err := h.orders.AddMenuItem(r.Context(), domain.MenuItem{
		Title:       req.Title,
		Description: req.Description,
		Image:       req.Image,
		Price:       req.Price,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogAction(r.Context(), actor.UserID, "add", "menu-item", req.Title, "success", "")
	writeJSON(w, http.StatusOK, menu)
}

// History handles GET /api/order
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.ReadOwnOrders, authz.Target{}); err != nil {
		writeError(w, h.logger, err)
		return
	}

	page := queryInt(r, "page", 0)
	orders, err := h.orders.Orders(r.Context(), actor.UserID, page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, OrderHistoryResponse{
		DinerID: actor.UserID,
		Orders:  orders,
		Page:    page,
	})
}

// Place handles POST /api/order. The order is persisted before the factory
// call; a fulfillment failure answers 500 with the order already on the
// ledger.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.CreateOrder, authz.Target{}); err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req PlaceOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, receipt, err := h.orders.PlaceOrder(r.Context(), actor, req.FranchiseID, req.StoreID, req.Items)
	if err != nil {
		if order != nil {
			h.audit.LogOrder(r.Context(), actor.UserID, order.ID, "fulfillment-failure", err.Error())
		}
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogOrder(r.Context(), actor.UserID, order.ID, "success", "")

	resp := PlaceOrderResponse{Order: order}
	if receipt != nil {
		resp.TrackingToken = receipt.TrackingToken
		resp.ReportURL = receipt.ReportURL
	}
	writeJSON(w, http.StatusOK, resp)
}
