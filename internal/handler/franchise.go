package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/authz"
	"github.com/yourorg/orderdesk/internal/security/middleware"
	"github.com/yourorg/orderdesk/internal/service"
)

// CreateFranchiseRequest carries a new franchise and its admin emails
type CreateFranchiseRequest struct {
	Name   string `json:"name"`
	Admins []struct {
		Email string `json:"email"`
	} `json:"admins"`
}

// CreateStoreRequest carries a new store's name
type CreateStoreRequest struct {
	Name string `json:"name"`
}

// FranchiseListResponse is one page of the public franchise directory
type FranchiseListResponse struct {
	Franchises []*domain.Franchise `json:"franchises"`
	More       bool                `json:"more"`
}

// FranchiseHandler serves the franchise directory endpoints
type FranchiseHandler struct {
	franchises *service.FranchiseService
	audit      *audit.Logger
	pageSize   int
	logger     *slog.Logger
}

// NewFranchiseHandler creates a new franchise handler
func NewFranchiseHandler(franchises *service.FranchiseService, auditLog *audit.Logger, pageSize int, logger *slog.Logger) *FranchiseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FranchiseHandler{
		franchises: franchises,
		audit:      auditLog,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// List handles GET /api/franchise. The directory is public.
func (h *FranchiseHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	limit := queryInt(r, "limit", h.pageSize)
	name := r.URL.Query().Get("name")

	franchises, more, err := h.franchises.List(r.Context(), page, limit, name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, FranchiseListResponse{Franchises: franchises, More: more})
}

// Create handles POST /api/franchise
func (h *FranchiseHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.CreateFranchise, authz.Target{}); err != nil {
		h.audit.LogDenied(r.Context(), actorID(actor), "franchise create")
		writeDenied(w, err, "unable to create a franchise")
		return
	}

	var req CreateFranchiseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	emails := make([]string, 0, len(req.Admins))
	for _, a := range req.Admins {
		emails = append(emails, a.Email)
	}

	franchise, err := h.franchises.Create(r.Context(), req.Name, emails)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogFranchiseChange(r.Context(), actor.UserID, "create", franchise.ID, "success", franchise.Name)
	writeJSON(w, http.StatusOK, franchise)
}

// ForUser handles GET /api/franchise/{userId}. Asking about someone else's
// franchises answers an empty list, never a denial.
func (h *FranchiseHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.ListUserFranchises, authz.Target{UserID: userID}); err != nil {
		var authzErr *domain.AuthorizationError
		if errors.As(err, &authzErr) {
			writeJSON(w, http.StatusOK, []*domain.Franchise{})
			return
		}
		writeError(w, h.logger, err)
		return
	}

	franchises, err := h.franchises.ForUser(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, franchises)
}

// Delete handles DELETE /api/franchise/{id}. No credential is required;
// existing clients call this bare and the response never reveals whether
// the franchise existed.
func (h *FranchiseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	franchiseID := r.PathValue("id")

	if err := h.franchises.Delete(r.Context(), franchiseID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	h.audit.LogFranchiseChange(r.Context(), actorID(actor), "delete", franchiseID, "success", "")
	writeMessage(w, http.StatusOK, "franchise deleted")
}

// CreateStore handles POST /api/franchise/{id}/store
func (h *FranchiseHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	franchiseID := r.PathValue("id")

	actor := middleware.ActorFromContext(r.Context())
	if err := h.authorizeStore(r, actor, franchiseID); err != nil {
		h.audit.LogDenied(r.Context(), actorID(actor), "store create")
		writeDenied(w, err, "unable to create a store")
		return
	}

	var req CreateStoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	store, err := h.franchises.CreateStore(r.Context(), franchiseID, req.Name)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			writeMessage(w, http.StatusForbidden, "unable to create a store")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogFranchiseChange(r.Context(), actor.UserID, "store-create", franchiseID, "success", store.Name)
	writeJSON(w, http.StatusOK, store)
}

// DeleteStore handles DELETE /api/franchise/{fid}/store/{sid}
func (h *FranchiseHandler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	franchiseID := r.PathValue("fid")
	storeID := r.PathValue("sid")

	actor := middleware.ActorFromContext(r.Context())
	if err := h.authorizeStore(r, actor, franchiseID); err != nil {
		h.audit.LogDenied(r.Context(), actorID(actor), "store delete")
		writeDenied(w, err, "unable to delete a store")
		return
	}

	if err := h.franchises.DeleteStore(r.Context(), franchiseID, storeID); err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			writeMessage(w, http.StatusForbidden, "unable to delete a store")
			return
		}
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogFranchiseChange(r.Context(), actor.UserID, "store-delete", franchiseID, "success", storeID)
	writeMessage(w, http.StatusOK, "store deleted")
}

// authorizeStore gates store mutations on the franchise's admin set. An
// unknown franchise yields an empty set, so it denies exactly like a
// franchise the actor does not administer.
func (h *FranchiseHandler) authorizeStore(r *http.Request, actor *authz.Actor, franchiseID string) error {
	var adminIDs []string
	franchise, err := h.franchises.Get(r.Context(), franchiseID)
	if err == nil {
		adminIDs = franchise.AdminIDs()
	} else {
		var notFound *domain.NotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	return authz.Authorize(actor, authz.ManageStore, authz.Target{FranchiseAdminIDs: adminIDs})
}

// writeDenied keeps the 401/403 distinction while replacing the denial
// message with the endpoint's documented one.
func writeDenied(w http.ResponseWriter, err error, message string) {
	var authzErr *domain.AuthorizationError
	var authnErr *domain.AuthenticationError
	switch {
	case errors.As(err, &authzErr):
		writeMessage(w, http.StatusForbidden, message)
	case errors.As(err, &authnErr):
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
	default:
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
