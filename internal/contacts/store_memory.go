package contacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-node setups.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]Contact // owner -> mxid -> contact
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Contact)}
}

func (s *MemoryStore) List(_ context.Context, owner string) (Contacts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Contacts{Contacts: []Contact{}}
	for _, c := range s.data[owner] {
		out.Contacts = append(out.Contacts, c)
	}
	sort.Slice(out.Contacts, func(i, j int) bool {
		return out.Contacts[i].MXID < out.Contacts[j].MXID
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, owner, mxid string) (*Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data[owner][mxid]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *MemoryStore) Upsert(_ context.Context, owner string, contact Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[owner] == nil {
		s.data[owner] = make(map[string]Contact)
	}
	s.data[owner][contact.MXID] = contact
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, owner, mxid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[owner], mxid)
	return nil
}
