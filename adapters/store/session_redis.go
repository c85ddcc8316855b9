package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/orbisauth/core"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps the cached session under a single Redis key.
// The key never expires on its own; expiry is judged by core.Validate.
type RedisSessionStore struct {
	client *redis.Client
	key    string
}

// NewRedisSessionStore creates a session store on key, or on
// core.SessionStorageKey when key is empty
func NewRedisSessionStore(client *redis.Client, key string) *RedisSessionStore {
	if key == "" {
		key = core.SessionStorageKey
	}
	return &RedisSessionStore{
		client: client,
		key:    key,
	}
}

// NewRedisSessionStoreFromURL connects to redisURL and verifies the connection
func NewRedisSessionStoreFromURL(ctx context.Context, redisURL, key string) (*RedisSessionStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisSessionStore(client, key), nil
}

// Read returns the cached session or core.ErrNoSession
func (s *RedisSessionStore) Read(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", core.ErrNoSession
		}
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	return value, nil
}

// Write replaces the cached session
func (s *RedisSessionStore) Write(ctx context.Context, raw string) error {
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear removes the cached session
func (s *RedisSessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Client returns the underlying Redis client so it can be shared
func (s *RedisSessionStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}
