package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/repository/memory"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/auth"
	"github.com/yourorg/orderdesk/internal/security/ratelimit"
	"github.com/yourorg/orderdesk/internal/security/session"
	"github.com/yourorg/orderdesk/internal/service"
	"github.com/yourorg/orderdesk/pkg/config"
)

type fixture struct {
	router   http.Handler
	users    *memory.UserRepository
	sessions *session.Manager
	limiter  *ratelimit.Limiter
	t        *testing.T
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	userRepo := memory.NewUserRepository()
	franchiseRepo := memory.NewFranchiseRepository()
	sessions := session.NewManager(
		auth.NewTokenManager("test-secret", "orderdesk"),
		session.NewMemoryRegistry(),
		time.Hour,
		nil,
	)
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	t.Cleanup(limiter.Stop)

	userService := service.NewUserService(userRepo, sessions, nil)

	router := NewRouter(Services{
		Users:      userService,
		Franchises: service.NewFranchiseService(franchiseRepo, userRepo, nil),
		Orders:     service.NewOrderService(memory.NewMenuRepository(), memory.NewOrderRepository(), franchiseRepo, nil, 10, nil),
		Sessions:   sessions,
		Limiter:    limiter,
		Audit:      audit.NewLogger(nil),
		Config: &config.Config{
			Version:            "test",
			ListPerPage:        10,
			CORSAllowedOrigins: []string{"https://app.example.com"},
		},
	})

	return &fixture{router: router, users: userRepo, sessions: sessions, limiter: limiter, t: t}
}

func (f *fixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) decode(rec *httptest.ResponseRecorder, out interface{}) {
	f.t.Helper()
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), out))
}

// register creates a user through the API and returns its id and token
func (f *fixture) register(name, email string) (string, string) {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/auth", "", map[string]string{
		"name": name, "email": email, "password": "secret",
	})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AuthResponse
	f.decode(rec, &resp)
	return resp.User.ID, resp.Token
}

// admin registers a user, promotes them, and logs in again so the fresh
// token carries the admin role
func (f *fixture) admin() (string, string) {
	f.t.Helper()
	id, _ := f.register("Root Admin", "admin@example.com")
	require.NoError(f.t, f.users.GrantRole(id, domain.Role{Kind: domain.RoleAdmin}))

	rec := f.do(http.MethodPut, "/api/auth", "", map[string]string{
		"email": "admin@example.com", "password": "secret",
	})
	require.Equal(f.t, http.StatusOK, rec.Code)

	var resp AuthResponse
	f.decode(rec, &resp)
	return id, resp.Token
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Message
}

func TestRegisterLoginLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var registered AuthResponse
	f.decode(rec, &registered)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.NotContains(t, rec.Body.String(), "secret", "password must never appear in a response")

	// The fresh token is immediately usable
	rec = f.do(http.MethodGet, "/api/user/me", registered.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Login issues a second, independent session
	rec = f.do(http.MethodPut, "/api/auth", "", map[string]string{
		"email": "ada@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var loggedIn AuthResponse
	f.decode(rec, &loggedIn)
	assert.NotEmpty(t, loggedIn.Token)

	// Logout revokes only the presented token
	rec = f.do(http.MethodDelete, "/api/auth", loggedIn.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "logout successful", message(t, rec))

	rec = f.do(http.MethodGet, "/api/user/me", loggedIn.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(http.MethodGet, "/api/user/me", registered.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "the other session must survive")
}

func TestRegisterMissingFields(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/auth", "", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginFailureAnswers500(t *testing.T) {
	f := newFixture(t)
	f.register("Ada", "ada@example.com")

	for _, creds := range []map[string]string{
		{"email": "ada@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "secret"},
	} {
		rec := f.do(http.MethodPut, "/api/auth", "", creds)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "invalid credentials", message(t, rec))
	}
}

func TestLogoutWithoutToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodDelete, "/api/auth", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMalformedBearerIsAnonymous(t *testing.T) {
	f := newFixture(t)
	_, token := f.register("Ada", "ada@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req.Header.Set("Authorization", token) // no Bearer prefix
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserListRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, dinerToken := f.register("Ada", "ada@example.com")

	rec := f.do(http.MethodGet, "/api/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "anonymous gets 401")

	rec = f.do(http.MethodGet, "/api/user", dinerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "authenticated non-admin gets 403")

	_, adminToken := f.admin()
	rec = f.do(http.MethodGet, "/api/user?page=0", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UserListResponse
	f.decode(rec, &resp)
	assert.Len(t, resp.Users, 2)
	assert.False(t, resp.More)
}

func TestUpdateUserReturnsFreshToken(t *testing.T) {
	f := newFixture(t)
	id, token := f.register("Ada", "ada@example.com")

	rec := f.do(http.MethodPut, "/api/user/"+id, token, map[string]string{"name": "Ada Lovelace"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuthResponse
	f.decode(rec, &resp)
	assert.Equal(t, "Ada Lovelace", resp.User.Name)
	require.NotEmpty(t, resp.Token)

	// The fresh token reflects the update
	actor := f.sessions.Resolve(context.Background(), resp.Token)
	require.NotNil(t, actor)
	assert.Equal(t, "Ada Lovelace", actor.Name)
}

func TestUpdateOtherUserDenied(t *testing.T) {
	f := newFixture(t)
	otherID, _ := f.register("Bob", "bob@example.com")
	_, token := f.register("Ada", "ada@example.com")

	rec := f.do(http.MethodPut, "/api/user/"+otherID, token, map[string]string{"name": "Hacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "wrong actor gets 403, never 401")

	rec = f.do(http.MethodPut, "/api/user/"+otherID, "", map[string]string{"name": "Hacked"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Admin may update anyone
	_, adminToken := f.admin()
	rec = f.do(http.MethodPut, "/api/user/"+otherID, adminToken, map[string]string{"name": "Robert"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteUserInvalidatesSessions(t *testing.T) {
	f := newFixture(t)
	id, token := f.register("Ada", "ada@example.com")

	rec := f.do(http.MethodDelete, "/api/user/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user deleted", message(t, rec))

	rec = f.do(http.MethodGet, "/api/user/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "deleted user's token resolves to Anonymous")
}

func TestFranchiseLifecycle(t *testing.T) {
	f := newFixture(t)
	frankID, frankToken := f.register("Frank", "frank@example.com")
	_, adminToken := f.admin()

	// Non-admin cannot create a franchise
	rec := f.do(http.MethodPost, "/api/franchise", frankToken, map[string]interface{}{"name": "PizzaPlanet"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unable to create a franchise", message(t, rec))

	rec = f.do(http.MethodPost, "/api/franchise", "", map[string]interface{}{"name": "PizzaPlanet"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", message(t, rec))

	// Admin creates it, with Frank as franchise admin
	rec = f.do(http.MethodPost, "/api/franchise", adminToken, map[string]interface{}{
		"name":   "PizzaPlanet",
		"admins": []map[string]string{{"email": "frank@example.com"}, {"email": "ghost@example.com"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var franchise domain.Franchise
	f.decode(rec, &franchise)
	require.Len(t, franchise.Admins, 1, "unresolvable admin email is dropped")
	assert.Equal(t, frankID, franchise.Admins[0].ID)

	// The public directory lists it without credentials
	rec = f.do(http.MethodGet, "/api/franchise", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing FranchiseListResponse
	f.decode(rec, &listing)
	require.Len(t, listing.Franchises, 1)

	// Deletion requires no credential and reports success
	rec = f.do(http.MethodDelete, "/api/franchise/"+franchise.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "franchise deleted", message(t, rec))

	// Deleting again still succeeds
	rec = f.do(http.MethodDelete, "/api/franchise/"+franchise.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFranchisesForUserDeniedAsEmpty(t *testing.T) {
	f := newFixture(t)
	frankID, frankToken := f.register("Frank", "frank@example.com")
	_, otherToken := f.register("Ada", "ada@example.com")
	_, adminToken := f.admin()

	rec := f.do(http.MethodPost, "/api/franchise", adminToken, map[string]interface{}{
		"name":   "PizzaPlanet",
		"admins": []map[string]string{{"email": "frank@example.com"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Owner sees their franchise; Frank must log in again so his token
	// carries the new scoped role, but listing only needs identity
	rec = f.do(http.MethodGet, "/api/franchise/"+frankID, frankToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var own []domain.Franchise
	f.decode(rec, &own)
	assert.Len(t, own, 1)

	// A different authenticated user gets an empty list, not an error
	rec = f.do(http.MethodGet, "/api/franchise/"+frankID, otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var denied []domain.Franchise
	f.decode(rec, &denied)
	assert.Empty(t, denied)
	assert.Equal(t, "[]\n", rec.Body.String(), "denied listing serializes as an empty sequence")

	// Admin sees anyone's
	rec = f.do(http.MethodGet, "/api/franchise/"+frankID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreAuthorizationMatrix(t *testing.T) {
	f := newFixture(t)
	_, frankToken := f.register("Frank", "frank@example.com")
	_, dinerToken := f.register("Ada", "ada@example.com")
	_, adminToken := f.admin()

	rec := f.do(http.MethodPost, "/api/franchise", adminToken, map[string]interface{}{
		"name":   "PizzaPlanet",
		"admins": []map[string]string{{"email": "frank@example.com"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var franchise domain.Franchise
	f.decode(rec, &franchise)

	// A plain diner cannot create a store
	rec = f.do(http.MethodPost, "/api/franchise/"+franchise.ID+"/store", dinerToken, map[string]string{"name": "Downtown"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unable to create a store", message(t, rec))

	// The franchise admin can
	rec = f.do(http.MethodPost, "/api/franchise/"+franchise.ID+"/store", frankToken, map[string]string{"name": "Downtown"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var store domain.Store
	f.decode(rec, &store)
	assert.NotEmpty(t, store.ID)

	// An unknown franchise denies like a foreign one, not a 404
	rec = f.do(http.MethodPost, "/api/franchise/no-such/store", frankToken, map[string]string{"name": "Nowhere"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unable to create a store", message(t, rec))

	// Store deletion follows the same gate
	rec = f.do(http.MethodDelete, "/api/franchise/"+franchise.ID+"/store/"+store.ID, dinerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unable to delete a store", message(t, rec))

	rec = f.do(http.MethodDelete, "/api/franchise/"+franchise.ID+"/store/"+store.ID, frankToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "store deleted", message(t, rec))
}

func TestMenuEndpoints(t *testing.T) {
	f := newFixture(t)
	_, dinerToken := f.register("Ada", "ada@example.com")
	_, adminToken := f.admin()

	// The catalog is public
	rec := f.do(http.MethodGet, "/api/order/menu", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Only admins may extend it
	item := map[string]interface{}{"title": "Veggie", "description": "Garden pizza", "price": 3.5}
	rec = f.do(http.MethodPut, "/api/order/menu", dinerToken, item)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unable to add menu item", message(t, rec))

	rec = f.do(http.MethodPut, "/api/order/menu", adminToken, item)
	require.Equal(t, http.StatusOK, rec.Code)

	var menu []domain.MenuItem
	f.decode(rec, &menu)
	require.Len(t, menu, 1)
	assert.Equal(t, "Veggie", menu[0].Title)
}

func TestOrderEndpoints(t *testing.T) {
	f := newFixture(t)
	_, token := f.register("Ada", "ada@example.com")
	_, adminToken := f.admin()

	rec := f.do(http.MethodPost, "/api/franchise", adminToken, map[string]interface{}{"name": "PizzaPlanet"})
	require.Equal(t, http.StatusOK, rec.Code)
	var franchise domain.Franchise
	f.decode(rec, &franchise)

	rec = f.do(http.MethodPost, "/api/franchise/"+franchise.ID+"/store", adminToken, map[string]string{"name": "Downtown"})
	require.Equal(t, http.StatusOK, rec.Code)
	var store domain.Store
	f.decode(rec, &store)

	// Ordering requires a session
	order := map[string]interface{}{
		"franchiseId": franchise.ID,
		"storeId":     store.ID,
		"items":       []map[string]interface{}{{"menuId": "m-1", "description": "Veggie", "price": 3.5}},
	}
	rec = f.do(http.MethodPost, "/api/order", "", order)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/order", token, order)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var placed PlaceOrderResponse
	f.decode(rec, &placed)
	assert.NotEmpty(t, placed.Order.ID)
	assert.Empty(t, placed.TrackingToken, "no factory configured")

	// The ledger sees only the caller's orders
	rec = f.do(http.MethodGet, "/api/order", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history OrderHistoryResponse
	f.decode(rec, &history)
	require.Len(t, history.Orders, 1)
	assert.Equal(t, placed.Order.ID, history.Orders[0].ID)

	rec = f.do(http.MethodGet, "/api/order", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var adminHistory OrderHistoryResponse
	f.decode(rec, &adminHistory)
	assert.Empty(t, adminHistory.Orders)
}

func TestBannerDocsAndUnknownRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var banner map[string]string
	f.decode(rec, &banner)
	assert.Equal(t, "test", banner["version"])
	assert.NotEmpty(t, banner["message"])

	rec = f.do(http.MethodGet, "/api/docs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var docs DocsResponse
	f.decode(rec, &docs)
	assert.NotEmpty(t, docs.Endpoints)

	rec = f.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown endpoint", message(t, rec))
}

// requestPathLabels gathers the request counter and returns the set of path
// label values it currently carries.
func requestPathLabels(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	paths := map[string]bool{}
	for _, mf := range families {
		if mf.GetName() != "orderdesk_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] = true
				}
			}
		}
	}
	return paths
}

func TestMetricsLabelAuthenticatedRequestsByRoute(t *testing.T) {
	f := newFixture(t)
	_, token := f.register("Metered", "metered@example.com")

	rec := f.do(http.MethodGet, "/api/user/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/order/menu", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	paths := requestPathLabels(t)
	assert.True(t, paths["GET /api/user/me"], "authenticated request not labeled with its route: %v", paths)
	assert.True(t, paths["GET /api/order/menu"], "anonymous request not labeled with its route: %v", paths)
}

func TestCORSHeaderOnlyForAllowedOrigins(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/order/menu", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/order/menu", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}
