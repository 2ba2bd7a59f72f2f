package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yourorg/orderdesk/internal/security/auth"
	"github.com/yourorg/orderdesk/internal/security/authz"
	"github.com/yourorg/orderdesk/internal/security/ratelimit"
	"github.com/yourorg/orderdesk/internal/security/session"
)

type ActorContextKey struct{}

// RequestIDKey carries the per-request correlation id set by the outermost
// middleware
type RequestIDKey struct{}

// ResolveActor attaches the actor resolved from the Authorization header to
// the request context. It never rejects: a missing, malformed, revoked, or
// forged credential all leave the request anonymous, and each handler
// decides whether that is acceptable.
func ResolveActor(sessions *session.Manager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := auth.ExtractToken(authHeader)
			if err != nil {
				// Malformed header is treated identically to no credential
				next.ServeHTTP(w, r)
				return
			}

			actor := sessions.Resolve(r.Context(), token)
			if actor == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ActorContextKey{}, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware throttles per actor, falling back to the remote
// address for anonymous requests
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.RemoteAddr
			if actor := ActorFromContext(r.Context()); actor != nil {
				key = actor.UserID
			}

			if !limiter.Allow(key) {
				http.Error(w, `{"message":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ActorFromContext returns the resolved actor, or nil for Anonymous
func ActorFromContext(ctx context.Context) *authz.Actor {
	if a := ctx.Value(ActorContextKey{}); a != nil {
		return a.(*authz.Actor)
	}
	return nil
}
