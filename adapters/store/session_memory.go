package store

import (
	"context"
	"sync"

	"github.com/layer-3/orbisauth/core"
)

// MemorySessionStore keeps the cached session in process memory.
// It is used by tests and by clients that do not need persistence.
type MemorySessionStore struct {
	mu    sync.RWMutex
	value string
	set   bool
}

// NewMemorySessionStore creates an empty in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

// Read returns the cached session or core.ErrNoSession
func (s *MemorySessionStore) Read(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return "", core.ErrNoSession
	}
	return s.value, nil
}

// Write replaces the cached session
func (s *MemorySessionStore) Write(ctx context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = raw
	s.set = true
	return nil
}

// Clear removes the cached session
func (s *MemorySessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = ""
	s.set = false
	return nil
}
