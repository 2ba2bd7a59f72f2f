package test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/handler"
	"github.com/yourorg/orderdesk/internal/repository/memory"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/auth"
	"github.com/yourorg/orderdesk/internal/security/ratelimit"
	"github.com/yourorg/orderdesk/internal/security/session"
	"github.com/yourorg/orderdesk/internal/service"
	"github.com/yourorg/orderdesk/pkg/config"
)

// TestServerHelper runs the full HTTP surface against in-memory stores
type TestServerHelper struct {
	Server   *httptest.Server
	Users    *memory.UserRepository
	Sessions *session.Manager
}

// NewTestServer builds a complete server wired the way cmd/server does it,
// minus Postgres, Redis, and the factory.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()

	userRepo := memory.NewUserRepository()
	franchiseRepo := memory.NewFranchiseRepository()
	sessions := session.NewManager(
		auth.NewTokenManager("integration-secret", "orderdesk"),
		session.NewMemoryRegistry(),
		time.Hour,
		nil,
	)
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	router := handler.NewRouter(handler.Services{
		Users:      service.NewUserService(userRepo, sessions, nil),
		Franchises: service.NewFranchiseService(franchiseRepo, userRepo, nil),
		Orders:     service.NewOrderService(memory.NewMenuRepository(), memory.NewOrderRepository(), franchiseRepo, nil, 10, nil),
		Sessions:   sessions,
		Limiter:    limiter,
		Audit:      audit.NewLogger(nil),
		Config: &config.Config{
			Version:     "integration",
			ListPerPage: 10,
		},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServerHelper{Server: server, Users: userRepo, Sessions: sessions}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Do issues a request with an optional bearer token and JSON body
func (h *TestServerHelper) Do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, h.URL()+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// Register creates an account via the API and returns its id and token
func (h *TestServerHelper) Register(t *testing.T, name, email, password string) (string, string) {
	t.Helper()

	resp := h.Do(t, http.MethodPost, "/api/auth", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var result handler.AuthResponse
	DecodeJSON(t, resp, &result)
	return result.User.ID, result.Token
}

// RegisterAdmin registers an account, promotes it, and logs in again so
// the returned token carries the admin role
func (h *TestServerHelper) RegisterAdmin(t *testing.T, email string) (string, string) {
	t.Helper()

	id, _ := h.Register(t, "Admin", email, "admin-pw")
	if err := h.Users.GrantRole(id, domain.Role{Kind: domain.RoleAdmin}); err != nil {
		t.Fatalf("failed to grant admin role: %v", err)
	}

	resp := h.Do(t, http.MethodPut, "/api/auth", "", map[string]string{
		"email": email, "password": "admin-pw",
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var result handler.AuthResponse
	DecodeJSON(t, resp, &result)
	return id, result.Token
}

// DecodeJSON decodes a response body, failing the test on malformed JSON
func DecodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// AssertStatusCode fails the test if the response status does not match
func AssertStatusCode(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(body))
	}
}

// Message reads the {"message": ...} envelope from a response
func Message(t *testing.T, resp *http.Response) string {
	t.Helper()
	var result handler.MessageResponse
	DecodeJSON(t, resp, &result)
	return result.Message
}
