package session

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/orderdesk/internal/infrastructure/redis"
)

const (
	tokenKeyPrefix = "session:token:"
	userKeyPrefix  = "session:user:"
)

// RedisRegistry stores session records in Redis. Token records self-expire
// via TTL; a per-user set indexes tokens for deletion cascades.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) Add(ctx context.Context, tokenKey, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, tokenKeyPrefix+tokenKey, userID, ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if err := r.client.SAdd(ctx, userKeyPrefix+userID, tokenKey); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Has(ctx context.Context, tokenKey string) (bool, error) {
	return r.client.Exists(ctx, tokenKeyPrefix+tokenKey)
}

func (r *RedisRegistry) Remove(ctx context.Context, tokenKey string) error {
	userID, err := r.client.Get(ctx, tokenKeyPrefix+tokenKey)
	if err != nil {
		// Already gone; revocation is idempotent
		return nil
	}
	if err := r.client.Delete(ctx, tokenKeyPrefix+tokenKey); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	if err := r.client.SRem(ctx, userKeyPrefix+userID, tokenKey); err != nil {
		return fmt.Errorf("failed to unindex session: %w", err)
	}
	return nil
}

func (r *RedisRegistry) RemoveUser(ctx context.Context, userID string) error {
	tokenKeys, err := r.client.SMembers(ctx, userKeyPrefix+userID)
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}
	keys := make([]string, 0, len(tokenKeys)+1)
	for _, tk := range tokenKeys {
		keys = append(keys, tokenKeyPrefix+tk)
	}
	keys = append(keys, userKeyPrefix+userID)
	if err := r.client.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to remove user sessions: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Count(ctx context.Context) (int, error) {
	keys, err := r.client.Keys(ctx, tokenKeyPrefix+"*")
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// PruneExpired drops user-index entries whose token record has already
// expired. Token records themselves expire via TTL.
func (r *RedisRegistry) PruneExpired(ctx context.Context) (int, error) {
	userKeys, err := r.client.Keys(ctx, userKeyPrefix+"*")
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, userKey := range userKeys {
		tokenKeys, err := r.client.SMembers(ctx, userKey)
		if err != nil {
			continue
		}
		for _, tk := range tokenKeys {
			exists, err := r.client.Exists(ctx, tokenKeyPrefix+tk)
			if err != nil || exists {
				continue
			}
			if err := r.client.SRem(ctx, userKey, tk); err == nil {
				pruned++
			}
		}
	}
	return pruned, nil
}
