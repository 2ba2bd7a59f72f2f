package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/authz"
	"github.com/yourorg/orderdesk/internal/security/middleware"
	"github.com/yourorg/orderdesk/internal/security/session"
	"github.com/yourorg/orderdesk/internal/service"
)

// UpdateUserRequest carries a partial profile update; empty fields keep
// their current value.
type UpdateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserListResponse is one page of the admin user listing
type UserListResponse struct {
	Users []*domain.User `json:"users"`
	More  bool           `json:"more"`
}

// UserHandler serves the user profile endpoints
type UserHandler struct {
	users    *service.UserService
	sessions *session.Manager
	audit    *audit.Logger
	pageSize int
	logger   *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService, sessions *session.Manager, auditLog *audit.Logger, pageSize int, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:    users,
		sessions: sessions,
		audit:    auditLog,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Me handles GET /api/user/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.ReadUser, authz.Target{UserID: actorID(actor)}); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Get(r.Context(), actor.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// List handles GET /api/user
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.ListUsers, authz.Target{}); err != nil {
		h.audit.LogDenied(r.Context(), actorID(actor), "user list")
		writeError(w, h.logger, err)
		return
	}

	page := queryInt(r, "page", 0)
	limit := queryInt(r, "limit", h.pageSize)
	pattern := r.URL.Query().Get("name")

	users, more, err := h.users.List(r.Context(), page, limit, pattern)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{Users: users, More: more})
}

// Update handles PUT /api/user/{id}. The response carries a fresh token so
// clients see claims matching the updated profile.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.UpdateUser, authz.Target{UserID: userID}); err != nil {
		h.audit.LogDenied(r.Context(), actorID(actor), "user update")
		writeError(w, h.logger, err)
		return
	}

	var req UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), userID, req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogAction(r.Context(), actor.UserID, "update", "user", userID, "success", "")
	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Delete handles DELETE /api/user/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	actor := middleware.ActorFromContext(r.Context())
	if err := authz.Authorize(actor, authz.DeleteUser, authz.Target{UserID: userID}); err != nil {
		h.audit.LogDenied(r.Context(), actorID(actor), "user delete")
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogAction(r.Context(), actor.UserID, "delete", "user", userID, "success", "")
	writeMessage(w, http.StatusOK, "user deleted")
}

func actorID(actor *authz.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
