package audit

import (
	"context"
	"sync"
)

// Store is an append-only event sink with a per-inviter read path.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByInviter(ctx context.Context, inviter string) ([]Event, error)
}

// MemoryStore is an in-memory Store for tests and single-node setups.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByInviter(_ context.Context, inviter string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.Inviter == inviter {
			out = append(out, e)
		}
	}
	return out, nil
}
