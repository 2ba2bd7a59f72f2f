package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/yourorg/orderdesk/internal/domain"
)

// UserRepository is an in-memory domain.UserRepository, used by tests and
// by dev runs without a database. Each operation is atomic under one lock,
// so the email-uniqueness check-and-insert cannot race.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	order   []string // insertion order of IDs
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    map[string]*domain.User{},
		byEmail: map[string]*domain.User{},
	}
}

func (r *UserRepository) Create(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return &domain.ConflictError{Message: "email already registered"}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := cloneUser(user)
	r.byID[stored.ID] = stored
	r.byEmail[stored.Email] = stored
	r.order = append(r.order, stored.ID)
	return nil
}

func (r *UserRepository) GetByID(id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byID[id]; ok {
		return cloneUser(u), nil
	}
	return nil, &domain.NotFoundError{Message: "user not found"}
}

func (r *UserRepository) GetByEmail(email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byEmail[email]; ok {
		return cloneUser(u), nil
	}
	return nil, &domain.NotFoundError{Message: "user not found"}
}

func (r *UserRepository) Update(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[user.ID]
	if !ok {
		return &domain.NotFoundError{Message: "user not found"}
	}
	if other, exists := r.byEmail[user.Email]; exists && other.ID != user.ID {
		return &domain.ConflictError{Message: "email already registered"}
	}
	delete(r.byEmail, existing.Email)
	existing.Name = user.Name
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.UpdatedAt = time.Now()
	r.byEmail[existing.Email] = existing
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *UserRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return &domain.NotFoundError{Message: "user not found"}
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *UserRepository) List(page, limit int, pattern string) ([]*domain.User, bool, error) {
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.User{}
	for _, id := range r.order {
		u := r.byID[id]
		if globMatch(pattern, u.Name) || globMatch(pattern, u.Email) {
			matched = append(matched, u)
		}
	}

	start := page * limit
	if start >= len(matched) {
		return []*domain.User{}, false, nil
	}
	end := start + limit
	more := end < len(matched)
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]*domain.User, 0, end-start)
	for _, u := range matched[start:end] {
		out = append(out, cloneUser(u))
	}
	return out, more, nil
}

func (r *UserRepository) GrantRole(userID string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return &domain.NotFoundError{Message: "user not found"}
	}
	if !u.HasScopedRole(role.Kind, role.ObjectID) {
		u.Roles = append(u.Roles, role)
	}
	return nil
}

func (r *UserRepository) RevokeRole(userID string, role domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return &domain.NotFoundError{Message: "user not found"}
	}
	u.Roles = removeRole(u.Roles, role)
	return nil
}

func (r *UserRepository) RevokeScopedRoles(kind domain.RoleKind, objectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role := domain.Role{Kind: kind, ObjectID: objectID}
	for _, u := range r.byID {
		u.Roles = removeRole(u.Roles, role)
	}
	return nil
}

func removeRole(roles []domain.Role, role domain.Role) []domain.Role {
	out := roles[:0]
	for _, r := range roles {
		if r.Kind == role.Kind && r.ObjectID == role.ObjectID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Roles = append([]domain.Role(nil), u.Roles...)
	return &c
}

// globMatch matches a full string against a glob pattern where "*" matches
// any substring, case-insensitively. Empty or "*" matches everything.
func globMatch(pattern, s string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	p := strings.ToLower(pattern)
	s = strings.ToLower(s)

	if !strings.Contains(p, "*") {
		return s == p
	}

	segments := strings.Split(p, "*")
	if !strings.HasPrefix(s, segments[0]) {
		return false
	}
	s = s[len(segments[0]):]

	last := segments[len(segments)-1]
	for _, seg := range segments[1 : len(segments)-1] {
		idx := strings.Index(s, seg)
		if idx < 0 {
			return false
		}
		s = s[idx+len(seg):]
	}
	return strings.HasSuffix(s, last)
}
