package roomstate

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests. Mutators are exported so
// tests can stage room fixtures.
type MemoryStore struct {
	mu        sync.RWMutex
	rooms     map[string]*memoryRoom
	dmPartner map[string]map[string]string // userID -> roomID -> partner
}

type memoryRoom struct {
	createdAt time.Time
	hosts     []string
	leaves    []Leave
	lastMsg   time.Time
	joinRule  string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:     make(map[string]*memoryRoom),
		dmPartner: make(map[string]map[string]string),
	}
}

// AddRoom registers a room with its creation time and current hosts.
func (s *MemoryStore) AddRoom(roomID string, createdAt time.Time, hosts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = &memoryRoom{createdAt: createdAt, hosts: hosts}
}

// SetHosts replaces the current hosts of a room.
func (s *MemoryStore) SetHosts(roomID string, hosts ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		r.hosts = hosts
	}
}

// AddLeave records a membership-leave event.
func (s *MemoryStore) AddLeave(roomID, userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		r.leaves = append(r.leaves, Leave{UserID: userID, At: at})
	}
}

// SetLastMessage records the most recent message timestamp.
func (s *MemoryStore) SetLastMessage(roomID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		r.lastMsg = at
	}
}

// SetJoinRule sets the room's current join rule.
func (s *MemoryStore) SetJoinRule(roomID, rule string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		r.joinRule = rule
	}
}

// SetDirectMessage records roomID as userID's DM with partner.
func (s *MemoryStore) SetDirectMessage(userID, roomID, partner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dmPartner[userID] == nil {
		s.dmPartner[userID] = make(map[string]string)
	}
	s.dmPartner[userID][roomID] = partner
}

func (s *MemoryStore) ListRooms(context.Context) ([]RoomInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, r := range s.rooms {
		out = append(out, RoomInfo{RoomID: id, CreatedAt: r.createdAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (s *MemoryStore) RoomHosts(_ context.Context, roomID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[roomID]; ok {
		return append([]string(nil), r.hosts...), nil
	}
	return nil, nil
}

func (s *MemoryStore) MembershipLeaves(_ context.Context, roomID string) ([]Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	leaves := append([]Leave(nil), r.leaves...)
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].At.After(leaves[j].At) })
	return leaves, nil
}

func (s *MemoryStore) LastMessageAt(_ context.Context, roomID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[roomID]; ok {
		return r.lastMsg, nil
	}
	return time.Time{}, nil
}

func (s *MemoryStore) JoinRule(_ context.Context, roomID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[roomID]; ok {
		return r.joinRule, nil
	}
	return "", nil
}

func (s *MemoryStore) DirectMessagePartner(_ context.Context, userID, roomID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dmPartner[userID][roomID], nil
}
