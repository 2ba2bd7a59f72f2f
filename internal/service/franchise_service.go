package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/yourorg/orderdesk/internal/domain"
)

// FranchiseService is the directory: the ownership graph of franchises,
// their admins, and their stores.
type FranchiseService struct {
	repo   domain.FranchiseRepository
	users  domain.UserRepository
	logger *slog.Logger
}

// NewFranchiseService creates a new franchise service
func NewFranchiseService(repo domain.FranchiseRepository, users domain.UserRepository, logger *slog.Logger) *FranchiseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FranchiseService{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// Create resolves each admin email against the credential store.
// Unresolvable emails are dropped from the admin set without failing the
// operation; each resolved admin is granted a franchisee role scoped to
// the new franchise.
func (s *FranchiseService) Create(ctx context.Context, name string, adminEmails []string) (*domain.Franchise, error) {
	if name == "" {
		return nil, &domain.ValidationError{Message: "franchise name is required"}
	}

	admins := []domain.FranchiseAdmin{}
	for _, email := range adminEmails {
		user, err := s.users.GetByEmail(email)
		if err != nil {
			s.logger.Warn("dropping unresolvable franchise admin",
				slog.String("email", email),
				slog.String("franchise", name),
			)
			continue
		}
		admins = append(admins, domain.FranchiseAdmin{ID: user.ID, Name: user.Name, Email: user.Email})
	}

	franchise := &domain.Franchise{
		ID:     uuid.NewString(),
		Name:   name,
		Admins: admins,
		Stores: []domain.Store{},
	}

	if err := s.repo.Create(franchise); err != nil {
		return nil, err
	}

	for _, admin := range admins {
		role := domain.Role{Kind: domain.RoleFranchisee, ObjectID: franchise.ID}
		if err := s.users.GrantRole(admin.ID, role); err != nil {
			s.logger.Error("failed to grant franchisee role",
				slog.String("user_id", admin.ID),
				slog.String("franchise_id", franchise.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("franchise created",
		slog.String("franchise_id", franchise.ID),
		slog.String("name", franchise.Name),
		slog.Int("admins", len(admins)),
	)
	return franchise, nil
}

// Get returns a franchise with its admins and stores
func (s *FranchiseService) Get(ctx context.Context, id string) (*domain.Franchise, error) {
	return s.repo.GetByID(id)
}

// List returns one page of franchises filtered by name containment
func (s *FranchiseService) List(ctx context.Context, page, limit int, nameFilter string) ([]*domain.Franchise, bool, error) {
	return s.repo.List(page, limit, nameFilter)
}

// ForUser returns the franchises userID administers; empty slice if none
func (s *FranchiseService) ForUser(ctx context.Context, userID string) ([]*domain.Franchise, error) {
	return s.repo.ListForUser(userID)
}

// Delete removes a franchise, its stores, and the scoped franchisee roles
// it granted. Deleting an absent franchise succeeds; there is deliberately
// no cascade check against outstanding orders.
func (s *FranchiseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(id); err != nil {
		if _, ok := err.(*domain.NotFoundError); ok {
			return nil
		}
		return err
	}
	if err := s.users.RevokeScopedRoles(domain.RoleFranchisee, id); err != nil {
		s.logger.Error("failed to revoke franchisee roles",
			slog.String("franchise_id", id),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Info("franchise deleted", slog.String("franchise_id", id))
	return nil
}

// CreateStore adds a store under a franchise
func (s *FranchiseService) CreateStore(ctx context.Context, franchiseID, name string) (*domain.Store, error) {
	if name == "" {
		return nil, &domain.ValidationError{Message: "store name is required"}
	}

	store := &domain.Store{
		ID:          uuid.NewString(),
		FranchiseID: franchiseID,
		Name:        name,
	}
	if err := s.repo.CreateStore(store); err != nil {
		return nil, err
	}

	s.logger.Info("store created",
		slog.String("store_id", store.ID),
		slog.String("franchise_id", franchiseID),
	)
	return store, nil
}

// DeleteStore removes a store from its franchise
func (s *FranchiseService) DeleteStore(ctx context.Context, franchiseID, storeID string) error {
	if err := s.repo.DeleteStore(franchiseID, storeID); err != nil {
		return err
	}
	s.logger.Info("store deleted",
		slog.String("store_id", storeID),
		slog.String("franchise_id", franchiseID),
	)
	return nil
}
