package relay

import (
	"context"
	"sync"
)

// SnapshotStore persists per-room seat assignments so a restarted relay
// can hand reconnecting participants their seats back. The hub is the
// only writer.
type SnapshotStore interface {
	// Save stores the room's seat map (seat ID -> participant ID).
	Save(ctx context.Context, roomID string, seats map[string]string) error

	// Load returns the stored seat map, or nil if none exists.
	Load(ctx context.Context, roomID string) (map[string]string, error)

	// Delete removes the room's snapshot.
	Delete(ctx context.Context, roomID string) error
}

// MemoryStore is the default SnapshotStore, used when no Redis address is
// configured. Snapshots do not survive a process restart.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]map[string]string)}
}

func (s *MemoryStore) Save(_ context.Context, roomID string, seats map[string]string) error {
	copied := make(map[string]string, len(seats))
	for seat, holder := range seats {
		copied[seat] = holder
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = copied
	return nil
}

func (s *MemoryStore) Load(_ context.Context, roomID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seats, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}

	copied := make(map[string]string, len(seats))
	for seat, holder := range seats {
		copied[seat] = holder
	}
	return copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}
