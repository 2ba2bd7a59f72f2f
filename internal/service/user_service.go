package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yourorg/orderdesk/internal/domain"
	"github.com/yourorg/orderdesk/internal/observability/metrics"
	"github.com/yourorg/orderdesk/internal/security/session"
	"golang.org/x/crypto/bcrypt"
)

// UserService is the credential store: it owns registration,
// authentication, profile updates, deletion, and listing.
type UserService struct {
	repo     domain.UserRepository
	sessions *session.Manager
	logger   *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(repo domain.UserRepository, sessions *session.Manager, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:     repo,
		sessions: sessions,
		logger:   logger,
	}
}

// Register creates a new user with the default diner role. The plaintext
// password is never stored.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if name == "" || email == "" || password == "" {
		metrics.ObserveAuthAttempt("register", "failure")
		return nil, &domain.ValidationError{Message: "name, email, and password are required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Roles:        []domain.Role{{Kind: domain.RoleDiner}},
	}

	if err := s.repo.Create(user); err != nil {
		metrics.ObserveAuthAttempt("register", "failure")
		return nil, err
	}

	metrics.ObserveAuthAttempt("register", "success")
	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Authenticate checks a credential pair. An unknown email and a wrong
// password produce the same error.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.GetByEmail(email)
	if err != nil {
		metrics.ObserveAuthAttempt("login", "failure")
		s.logger.Info("login attempt with unknown email", slog.String("email", email))
		return nil, &domain.AuthenticationError{Message: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.ObserveAuthAttempt("login", "failure")
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, &domain.AuthenticationError{Message: "invalid credentials"}
	}

	metrics.ObserveAuthAttempt("login", "success")
	return user, nil
}

// UpdateProfile applies a partial update; empty fields are preserved. A
// supplied password is re-hashed.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name, email, password string) (*domain.User, error) {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			s.logger.Error("failed to hash password", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.repo.Update(user); err != nil {
		return nil, err
	}

	s.logger.Info("user profile updated", slog.String("user_id", user.ID))
	return user, nil
}

// Delete removes a user. Their sessions are revoked first, so no request
// arriving after the revocation can authenticate as the half-deleted user.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke user sessions: %w", err)
	}
	if err := s.repo.Delete(userID); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("user_id", userID))
	return nil
}

// Get returns a user by id
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.GetByID(userID)
}

// List returns one page of users matching the glob pattern
func (s *UserService) List(ctx context.Context, page, limit int, pattern string) ([]*domain.User, bool, error) {
	return s.repo.List(page, limit, pattern)
}
