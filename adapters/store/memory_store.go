package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/orbisauth/ports"
)

// MemoryStore keeps invalidated grant IDs in process memory
type MemoryStore struct {
	invalidated map[string]time.Time
	mu          sync.RWMutex
	now         func() time.Time
}

// NewMemoryStore creates a new in-memory revocation store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		invalidated: make(map[string]time.Time),
		now:         time.Now,
	}
}

// InvalidateToken marks a grant as invalidated for the given duration
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	until := s.now().Add(expiry)
	if current, ok := s.invalidated[tokenID]; ok && current.After(until) {
		return nil
	}
	s.invalidated[tokenID] = until

	time.AfterFunc(expiry, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// a later invalidation may have extended the entry
		if stored, ok := s.invalidated[tokenID]; ok && !stored.After(until) {
			delete(s.invalidated, tokenID)
		}
	})

	return nil
}

// IsTokenInvalidated reports whether a grant is currently invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, ok := s.invalidated[tokenID]
	if !ok {
		return false, nil
	}

	return s.now().Before(until), nil
}
