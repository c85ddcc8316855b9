package store

import (
	"context"
	"fmt"
	"time"

	"github.com/layer-3/orbisauth/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultInvalidationPrefix namespaces invalidated grant IDs in Redis
const DefaultInvalidationPrefix = "orbis:invalidated:"

// RedisStore is a Redis implementation of the revocation Store
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis revocation store
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: DefaultInvalidationPrefix,
	}
}

// InvalidateToken marks a grant as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	if err := s.client.Set(ctx, s.prefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a grant is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return n > 0, nil
}
