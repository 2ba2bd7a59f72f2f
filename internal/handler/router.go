package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourorg/orderdesk/internal/observability/metrics"
	"github.com/yourorg/orderdesk/internal/security/audit"
	"github.com/yourorg/orderdesk/internal/security/middleware"
	"github.com/yourorg/orderdesk/internal/security/ratelimit"
	"github.com/yourorg/orderdesk/internal/security/session"
	"github.com/yourorg/orderdesk/internal/service"
	"github.com/yourorg/orderdesk/pkg/config"
)

// Services bundles everything the router wires into handlers
type Services struct {
	Users      *service.UserService
	Franchises *service.FranchiseService
	Orders     *service.OrderService
	Sessions   *session.Manager
	Limiter    *ratelimit.Limiter
	Audit      *audit.Logger
	Config     *config.Config
	Logger     *slog.Logger
	// Ready reports whether backing stores are reachable; nil means
	// always ready.
	Ready func(ctx context.Context) error
}

// NewRouter builds the full HTTP surface with its middleware chain
func NewRouter(s Services) http.Handler {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	authHandler := NewAuthHandler(s.Users, s.Sessions, s.Limiter, s.Audit, log)
	userHandler := NewUserHandler(s.Users, s.Sessions, s.Audit, s.Config.ListPerPage, log)
	franchiseHandler := NewFranchiseHandler(s.Franchises, s.Audit, s.Config.ListPerPage, log)
	orderHandler := NewOrderHandler(s.Orders, s.Audit, log)
	docsHandler := NewDocsHandler(s.Config)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth", authHandler.Register)
	mux.HandleFunc("PUT /api/auth", authHandler.Login)
	mux.HandleFunc("DELETE /api/auth", authHandler.Logout)

	mux.HandleFunc("GET /api/user/me", userHandler.Me)
	mux.HandleFunc("GET /api/user", userHandler.List)
	mux.HandleFunc("PUT /api/user/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/user/{id}", userHandler.Delete)

	mux.HandleFunc("GET /api/franchise", franchiseHandler.List)
	mux.HandleFunc("POST /api/franchise", franchiseHandler.Create)
	mux.HandleFunc("GET /api/franchise/{userId}", franchiseHandler.ForUser)
	mux.HandleFunc("DELETE /api/franchise/{id}", franchiseHandler.Delete)
	mux.HandleFunc("POST /api/franchise/{id}/store", franchiseHandler.CreateStore)
	mux.HandleFunc("DELETE /api/franchise/{fid}/store/{sid}", franchiseHandler.DeleteStore)

	mux.HandleFunc("GET /api/order/menu", orderHandler.Menu)
	mux.HandleFunc("PUT /api/order/menu", orderHandler.AddMenuItem)
	mux.HandleFunc("GET /api/order", orderHandler.History)
	mux.HandleFunc("POST /api/order", orderHandler.Place)

	mux.HandleFunc("GET /{$}", docsHandler.Root)
	mux.HandleFunc("GET /api/docs", docsHandler.Docs)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.Ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	// Everything else is a JSON 404
	mux.HandleFunc("/", docsHandler.NotFound)

	// Metrics must wrap the mux directly: the mux sets the matched pattern
	// on the request it receives, and outer middleware that re-contexts the
	// request hands the mux a copy the recorder never sees.
	instrumented := metrics.HTTPMetricsMiddleware(mux)

	// CORS honoring configured origins. Disallowed origins get no
	// Access-Control-Allow-Origin header at all.
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(s.Config.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		instrumented.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> actor -> rate limit -> CORS -> metrics
	return withRequestID(
		middleware.ResolveActor(s.Sessions, log)(
			middleware.RateLimitMiddleware(s.Limiter, log)(handlerWithCORS),
		),
		log,
	)
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), middleware.RequestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
