package domain

import "time"

// RoleKind identifies a role granted to a user
type RoleKind string

const (
	RoleDiner      RoleKind = "diner"
	RoleAdmin      RoleKind = "admin"
	RoleFranchisee RoleKind = "franchisee"
)

// Role is a tagged capability. Diner and Admin are global; Franchisee is
// scoped to a single franchise, carried in ObjectID.
type Role struct {
	Kind     RoleKind `json:"role"`
	ObjectID string   `json:"objectId,omitempty"`
}

// User represents a platform user
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // Unique across all users
	PasswordHash string    `json:"-"`     // Bcrypt hash, never serialized
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// HasRole reports whether the user holds a global role of the given kind
func (u *User) HasRole(kind RoleKind) bool {
	for _, r := range u.Roles {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// HasScopedRole reports whether the user holds a role scoped to objectID
func (u *User) HasScopedRole(kind RoleKind, objectID string) bool {
	for _, r := range u.Roles {
		if r.Kind == kind && r.ObjectID == objectID {
			return true
		}
	}
	return false
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(user *User) error
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	Update(user *User) error
	Delete(id string) error
	// List returns one zero-based page of users whose name or email matches
	// the glob pattern ("*" matches any substring, case-insensitive; empty
	// or "*" matches all), plus whether a further page would be non-empty.
	List(page, limit int, pattern string) ([]*User, bool, error)
	GrantRole(userID string, role Role) error
	RevokeRole(userID string, role Role) error
	// RevokeScopedRoles removes the given role kind scoped to objectID from
	// every user that holds it.
	RevokeScopedRoles(kind RoleKind, objectID string) error
}
