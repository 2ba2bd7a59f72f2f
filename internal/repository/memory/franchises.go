package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
)

// FranchiseRepository is an in-memory domain.FranchiseRepository
type FranchiseRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Franchise
	order []string
}

func NewFranchiseRepository() *FranchiseRepository {
	return &FranchiseRepository{byID: map[string]*domain.Franchise{}}
}

func (r *FranchiseRepository) Create(franchise *domain.Franchise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	franchise.CreatedAt = time.Now()
	stored := cloneFranchise(franchise)
	if stored.Stores == nil {
		stored.Stores = []domain.Store{}
	}
	r.byID[stored.ID] = stored
	r.order = append(r.order, stored.ID)
	return nil
}

func (r *FranchiseRepository) GetByID(id string) (*domain.Franchise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.byID[id]; ok {
		return cloneFranchise(f), nil
	}
	return nil, &domain.NotFoundError{Message: "franchise not found"}
}

func (r *FranchiseRepository) List(page, limit int, nameFilter string) ([]*domain.Franchise, bool, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.Franchise{}
	for _, id := range r.order {
		f := r.byID[id]
		// Case-sensitive containment, matching the listing contract
		if nameFilter == "" || nameFilter == "*" || strings.Contains(f.Name, nameFilter) {
			matched = append(matched, f)
		}
	}

	start := page * limit
	if start >= len(matched) {
		return []*domain.Franchise{}, false, nil
	}
	end := start + limit
	more := end < len(matched)
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*domain.Franchise, 0, end-start)
	for _, f := range matched[start:end] {
		out = append(out, cloneFranchise(f))
	}
	return out, more, nil
}

func (r *FranchiseRepository) ListForUser(userID string) ([]*domain.Franchise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Franchise{}
	for _, id := range r.order {
		f := r.byID[id]
		for _, admin := range f.Admins {
			if admin.ID == userID {
				out = append(out, cloneFranchise(f))
				break
			}
		}
	}
	return out, nil
}

func (r *FranchiseRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return &domain.NotFoundError{Message: "franchise not found"}
	}
	delete(r.byID, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *FranchiseRepository) CreateStore(store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[store.FranchiseID]
	if !ok {
		return &domain.NotFoundError{Message: "franchise not found"}
	}
	f.Stores = append(f.Stores, *store)
	return nil
}

func (r *FranchiseRepository) DeleteStore(franchiseID, storeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[franchiseID]
	if !ok {
		// Idempotent-ish: nothing to remove
		return nil
	}
	for i, s := range f.Stores {
		if s.ID == storeID {
			f.Stores = append(f.Stores[:i], f.Stores[i+1:]...)
			break
		}
	}
	return nil
}

func (r *FranchiseRepository) AddStoreRevenue(storeID string, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.byID {
		for i := range f.Stores {
			if f.Stores[i].ID == storeID {
				f.Stores[i].TotalRevenue += amount
				return nil
			}
		}
	}
	return nil
}

func cloneFranchise(f *domain.Franchise) *domain.Franchise {
	c := *f
	c.Admins = append([]domain.FranchiseAdmin(nil), f.Admins...)
	c.Stores = append([]domain.Store(nil), f.Stores...)
	if c.Stores == nil {
		c.Stores = []domain.Store{}
	}
	if c.Admins == nil {
		c.Admins = []domain.FranchiseAdmin{}
	}
	return &c
}
