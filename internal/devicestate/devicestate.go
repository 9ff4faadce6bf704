// Package devicestate holds per-device working state that is a
// convenience, not a source of truth: today that is the pointer to the
// device's current unconfirmed batch group per batch kind. Readers must
// tolerate stale or missing values; the staging manager revalidates every
// pointer against the repository.
package devicestate

import (
	"context"
	"fmt"
	"sync"
)

type Store interface {
	CurrentGroup(ctx context.Context, deviceID string, kind string) (string, bool, error)
	SetCurrentGroup(ctx context.Context, deviceID string, kind string, groupID string) error
	ClearCurrentGroup(ctx context.Context, deviceID string, kind string) error
}

func key(deviceID string, kind string) string {
	return fmt.Sprintf("device:%s:batch:%s", deviceID, kind)
}

// MemoryStore is the in-process fallback used when redis is not
// configured. State is lost on restart, which the self-healing lookup
// absorbs.
type MemoryStore struct {
	mu     sync.RWMutex
	groups map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{groups: make(map[string]string)}
}

func (s *MemoryStore) CurrentGroup(_ context.Context, deviceID string, kind string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groupID, ok := s.groups[key(deviceID, kind)]
	return groupID, ok, nil
}

func (s *MemoryStore) SetCurrentGroup(_ context.Context, deviceID string, kind string, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[key(deviceID, kind)] = groupID
	return nil
}

func (s *MemoryStore) ClearCurrentGroup(_ context.Context, deviceID string, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, key(deviceID, kind))
	return nil
}
