package ports

import (
	"context"
	"time"
)

// Store interface for grant invalidation on a node
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// SessionStore persists the encoded session of a client under one fixed key.
// Read returns core.ErrNoSession when nothing is cached.
type SessionStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, raw string) error
	Clear(ctx context.Context) error
}
