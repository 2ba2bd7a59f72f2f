package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/auth"
	"github.com/yourorg/orderdesk/internal/security/middleware"
	"github.com/yourorg/orderdesk/internal/security/ratelimit"
	"github.com/yourorg/orderdesk/internal/security/session"
	"github.com/yourorg/orderdesk/internal/service"
)

// RegisterRequest carries the fields for a new account
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on successful registration and login
type AuthResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

// AuthHandler serves registration, login and logout
type AuthHandler struct {
	users    *service.UserService
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService, sessions *session.Manager, limiter *ratelimit.Limiter, auditLog *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		limiter:  limiter,
		audit:    auditLog,
		logger:   logger,
	}
}

// Register handles POST /api/auth
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !h.allowStrict(r) {
		writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.audit.LogAuth(r.Context(), req.Email, "register", "failure", err.Error())
		writeError(w, h.logger, err)
		return
	}

	token, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogAuth(r.Context(), user.ID, "register", "success", "")
	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Login handles PUT /api/auth. A failed login answers 500 rather than 401,
// which long-standing clients depend on.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.allowStrict(r) {
		writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.LogAuth(r.Context(), req.Email, "login", "failure", "")
		var authnErr *domain.AuthenticationError
		if errors.As(err, &authnErr) {
			writeMessage(w, http.StatusInternalServerError, authnErr.Message)
			return
		}
		writeError(w, h.logger, err)
		return
	}

	token, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.audit.LogAuth(r.Context(), user.ID, "login", "success", "")
	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Logout handles DELETE /api/auth
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token, err := auth.ExtractToken(r.Header.Get("Authorization"))
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.sessions.Revoke(r.Context(), token); err != nil {
		h.logger.Warn("session revoke failed", slog.String("error", err.Error()))
	}

	h.audit.LogAuth(r.Context(), actor.UserID, "logout", "success", "")
	writeMessage(w, http.StatusOK, "logout successful")
}

// allowStrict applies the tighter credential-endpoint budget keyed by the
// caller's remote address.
func (h *AuthHandler) allowStrict(r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.AllowStrict(r.RemoteAddr, 10, time.Minute)
}
