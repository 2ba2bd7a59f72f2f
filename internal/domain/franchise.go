package domain

import "time"

// FranchiseAdmin is the sanitized view of a user administering a franchise
type FranchiseAdmin struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Franchise groups stores under a shared admin set. An admin may
// administer multiple franchises.
type Franchise struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Admins    []FranchiseAdmin `json:"admins"`
	Stores    []Store          `json:"stores"`
	CreatedAt time.Time        `json:"-"`
}

// AdminIDs returns the user ids of the franchise's admins
func (f *Franchise) AdminIDs() []string {
	ids := make([]string, 0, len(f.Admins))
	for _, a := range f.Admins {
		ids = append(ids, a.ID)
	}
	return ids
}

// Store exists only as a child of exactly one franchise
type Store struct {
	ID           string  `json:"id"`
	FranchiseID  string  `json:"franchiseId,omitempty"`
	Name         string  `json:"name"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// FranchiseRepository defines data access for franchises and their stores
type FranchiseRepository interface {
	Create(franchise *Franchise) error
	GetByID(id string) (*Franchise, error)
	// List returns one zero-based page of franchises whose name contains
	// nameFilter (case-sensitive; empty matches all), plus whether a
	// further page would be non-empty.
	List(page, limit int, nameFilter string) ([]*Franchise, bool, error)
	// ListForUser returns franchises where userID is an admin; empty slice
	// if none.
	ListForUser(userID string) ([]*Franchise, error)
	Delete(id string) error
	// CreateStore fails with NotFoundError when the parent franchise does
	// not exist.
	CreateStore(store *Store) error
	DeleteStore(franchiseID, storeID string) error
	AddStoreRevenue(storeID string, amount float64) error
}
