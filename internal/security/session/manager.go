package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/security/auth"
	"github.com/yourorg/orderdesk/internal/security/authz"
)

// Manager ties the signed-token half of a session to its server-side
// registry record. A token is valid only while BOTH hold: the registry has
// the token, and the signature verifies.
type Manager struct {
	tokens   *auth.TokenManager
	registry Registry
	ttl      time.Duration
	logger   *slog.Logger
}

func NewManager(tokens *auth.TokenManager, registry Registry, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tokens:   tokens,
		registry: registry,
		ttl:      ttl,
		logger:   logger,
	}
}

// Issue signs a token for the user and records the logged-in state
func (m *Manager) Issue(ctx context.Context, user *domain.User) (string, error) {
	token, err := m.tokens.Generate(user, m.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	if err := m.registry.Add(ctx, TokenKey(token), user.ID, m.ttl); err != nil {
		return "", fmt.Errorf("failed to register session: %w", err)
	}
	return token, nil
}

// Revoke removes the server-side record for a token; idempotent
func (m *Manager) Revoke(ctx context.Context, token string) error {
	return m.registry.Remove(ctx, TokenKey(token))
}

// RevokeUser removes every session belonging to a user. Called before user
// deletion so no concurrent request can still authenticate as them.
func (m *Manager) RevokeUser(ctx context.Context, userID string) error {
	return m.registry.RemoveUser(ctx, userID)
}

// Resolve maps a raw bearer token to an actor. It fails open to Anonymous
// (nil actor): a token missing from the registry and a token failing
// signature verification are indistinguishable to the caller.
func (m *Manager) Resolve(ctx context.Context, token string) *authz.Actor {
	if token == "" {
		return nil
	}
	ok, err := m.registry.Has(ctx, TokenKey(token))
	if err != nil {
		m.logger.Error("session registry lookup failed", slog.String("error", err.Error()))
		return nil
	}
	if !ok {
		return nil
	}
	claims, err := m.tokens.Validate(token)
	if err != nil {
		m.logger.Warn("registered token failed verification", slog.String("error", err.Error()))
		return nil
	}
	return &authz.Actor{
		UserID: claims.Subject,
		Name:   claims.Name,
		Email:  claims.Email,
		Roles:  claims.Roles,
	}
}

// Count returns the number of live session records
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.registry.Count(ctx)
}

// PruneExpired removes stale registry records
func (m *Manager) PruneExpired(ctx context.Context) (int, error) {
	return m.registry.PruneExpired(ctx)
}
