package accountdata

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-node setups.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]json.RawMessage
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]json.RawMessage)}
}

func (s *MemoryStore) GetGlobal(_ context.Context, userID, dataType string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.data[userID][dataType]
	if !ok {
		return nil, nil
	}
	out := make(json.RawMessage, len(content))
	copy(out, content)
	return out, nil
}

func (s *MemoryStore) PutGlobal(_ context.Context, userID, dataType string, content json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[userID] == nil {
		s.data[userID] = make(map[string]json.RawMessage)
	}
	stored := make(json.RawMessage, len(content))
	copy(stored, content)
	s.data[userID][dataType] = stored
	return nil
}
