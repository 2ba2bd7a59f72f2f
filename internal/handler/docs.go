package handler

import (
	"net/http"

	"github.com/yourorg/orderdesk/pkg/config"
)

// EndpointDoc describes one API endpoint in the self-served catalog
type EndpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Auth        bool   `json:"requiresAuth"`
}

// DocsResponse is the GET /api/docs payload
type DocsResponse struct {
	Version   string            `json:"version"`
	Endpoints []EndpointDoc     `json:"endpoints"`
	Config    map[string]string `json:"config"`
}

// DocsHandler serves the version banner and endpoint catalog
type DocsHandler struct {
	config *config.Config
}

// NewDocsHandler creates a new docs handler
func NewDocsHandler(cfg *config.Config) *DocsHandler {
	return &DocsHandler{config: cfg}
}

// Root handles GET /
func (h *DocsHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "welcome to orderdesk",
		"version": h.config.Version,
	})
}

// Docs handles GET /api/docs
func (h *DocsHandler) Docs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DocsResponse{
		Version:   h.config.Version,
		Endpoints: endpointCatalog,
		Config: map[string]string{
			"factory":     h.config.FactoryURL,
			"environment": h.config.Environment,
		},
	})
}

// NotFound answers every unmatched route
func (h *DocsHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusNotFound, "unknown endpoint")
}

var endpointCatalog = []EndpointDoc{
	{Method: "POST", Path: "/api/auth", Description: "register a new user", Auth: false},
	{Method: "PUT", Path: "/api/auth", Description: "login an existing user", Auth: false},
	{Method: "DELETE", Path: "/api/auth", Description: "logout the current session", Auth: true},
	{Method: "GET", Path: "/api/user/me", Description: "get the authenticated user", Auth: true},
	{Method: "GET", Path: "/api/user", Description: "list users (admin)", Auth: true},
	{Method: "PUT", Path: "/api/user/{id}", Description: "update a user profile", Auth: true},
	{Method: "DELETE", Path: "/api/user/{id}", Description: "delete a user", Auth: true},
	{Method: "GET", Path: "/api/franchise", Description: "list franchises", Auth: false},
	{Method: "POST", Path: "/api/franchise", Description: "create a franchise (admin)", Auth: true},
	{Method: "GET", Path: "/api/franchise/{userId}", Description: "list a user's franchises", Auth: true},
	{Method: "DELETE", Path: "/api/franchise/{id}", Description: "delete a franchise", Auth: false},
	{Method: "POST", Path: "/api/franchise/{id}/store", Description: "create a store", Auth: true},
	{Method: "DELETE", Path: "/api/franchise/{fid}/store/{sid}", Description: "delete a store", Auth: true},
	{Method: "GET", Path: "/api/order/menu", Description: "get the menu catalog", Auth: false},
	{Method: "PUT", Path: "/api/order/menu", Description: "add a menu item (admin)", Auth: true},
	{Method: "GET", Path: "/api/order", Description: "list the diner's orders", Auth: true},
	{Method: "POST", Path: "/api/order", Description: "place an order", Auth: true},
}
