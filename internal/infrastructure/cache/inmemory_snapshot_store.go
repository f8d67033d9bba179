package cache

import (
	"context"
	"sync"
	"time"

	"github.com/swimteam/backend/internal/domain/shared"
)

type snapshotEntry struct {
	blob      []byte
	expiresAt time.Time
}

// InMemorySnapshotStore implements SnapshotStore using a map.
// This is suitable for single-instance deployments and testing.
type InMemorySnapshotStore struct {
	mu      sync.RWMutex
	entries map[string]snapshotEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemorySnapshotStore creates an in-memory snapshot store.
// A zero ttl keeps snapshots until cleared.
func NewInMemorySnapshotStore(ttl time.Duration) *InMemorySnapshotStore {
	return &InMemorySnapshotStore{
		entries: make(map[string]snapshotEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Load returns a copy of the stored blob, or nil when nothing is stored
func (s *InMemorySnapshotStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		return nil, nil
	}
	return append([]byte(nil), e.blob...), nil
}

// Save stores a copy of the blob
func (s *InMemorySnapshotStore) Save(_ context.Context, key string, blob []byte) error {
	e := snapshotEntry{blob: append([]byte(nil), blob...)}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}

// Clear removes the stored blob
func (s *InMemorySnapshotStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored snapshots, expired ones included
func (s *InMemorySnapshotStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ shared.SnapshotStore = (*InMemorySnapshotStore)(nil)
