package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Registry is the server-side record of logged-in tokens. A token is only
// valid while its record exists; revocation removes the record and is
// immediately visible to subsequent resolution calls.
type Registry interface {
	Add(ctx context.Context, tokenKey, userID string, ttl time.Duration) error
	Has(ctx context.Context, tokenKey string) (bool, error)
	// Remove is idempotent
	Remove(ctx context.Context, tokenKey string) error
	// RemoveUser drops every record belonging to userID
	RemoveUser(ctx context.Context, userID string) error
	Count(ctx context.Context) (int, error)
	// PruneExpired drops stale records and returns how many were removed
	PruneExpired(ctx context.Context) (int, error)
}

// TokenKey derives the registry key for a raw token. Raw bearer tokens are
// never stored server-side.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type memoryRecord struct {
	userID    string
	expiresAt time.Time
}

// MemoryRegistry is an in-process Registry used by tests and by dev runs
// without Redis
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	byUser  map[string]map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		records: map[string]memoryRecord{},
		byUser:  map[string]map[string]struct{}{},
	}
}

func (r *MemoryRegistry) Add(_ context.Context, tokenKey, userID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[tokenKey] = memoryRecord{userID: userID, expiresAt: time.Now().Add(ttl)}
	if r.byUser[userID] == nil {
		r.byUser[userID] = map[string]struct{}{}
	}
	r.byUser[userID][tokenKey] = struct{}{}
	return nil
}

func (r *MemoryRegistry) Has(_ context.Context, tokenKey string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[tokenKey]
	if !ok {
		return false, nil
	}
	if time.Now().After(rec.expiresAt) {
		return false, nil
	}
	return true, nil
}

func (r *MemoryRegistry) Remove(_ context.Context, tokenKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(tokenKey)
	return nil
}

func (r *MemoryRegistry) RemoveUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tokenKey := range r.byUser[userID] {
		delete(r.records, tokenKey)
	}
	delete(r.byUser, userID)
	return nil
}

func (r *MemoryRegistry) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

func (r *MemoryRegistry) PruneExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	pruned := 0
	for tokenKey, rec := range r.records {
		if now.After(rec.expiresAt) {
			r.remove(tokenKey)
			pruned++
		}
	}
	return pruned, nil
}

// remove assumes the write lock is held
func (r *MemoryRegistry) remove(tokenKey string) {
	rec, ok := r.records[tokenKey]
	if !ok {
		return
	}
	delete(r.records, tokenKey)
	if tokens := r.byUser[rec.userID]; tokens != nil {
		delete(tokens, tokenKey)
		if len(tokens) == 0 {
			delete(r.byUser, rec.userID)
		}
	}
}
