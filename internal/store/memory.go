// internal/store/memory.go
package store

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/vgmguess/internal/models"
	"github.com/sirupsen/logrus"
)

// roomEntry pairs a lobby with the lock that serializes its mutations.
type roomEntry struct {
	mu      sync.Mutex
	lobby   *models.Lobby
	deleted bool // set under mu once the entry has left the map
}

// MemoryStore keeps lobbies in process memory. The map lock is only held long
// enough to find an entry; mutations take that room's own lock, so rooms never
// contend with each other.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry

	now     func() time.Time
	newCode func() string
}

// NewMemoryStore returns an empty in-memory room store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]*roomEntry),
		now:     time.Now,
		newCode: NewRoomCode,
	}
}

// Create seats host in a new lobby under an unused code.
func (s *MemoryStore) Create(ctx context.Context, host string) (*models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < maxCodeAttempts; i++ {
		code := s.newCode()
		if _, taken := s.rooms[code]; taken {
			continue
		}
		l := models.NewLobby(code, host, s.now())
		s.rooms[code] = &roomEntry{lobby: l}
		return l.Clone(), nil
	}
	return nil, ErrCodeSpace
}

// Get returns a copy of the lobby stored under code.
func (s *MemoryStore) Get(ctx context.Context, code string) (*models.Lobby, error) {
	e := s.entry(code)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrNotFound
	}
	return e.lobby.Clone(), nil
}

// Mutate applies fn under the room's lock.
func (s *MemoryStore) Mutate(ctx context.Context, code string, fn MutateFunc) (*models.Lobby, error) {
	e := s.entry(code)
	if e == nil {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	next := e.lobby.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()

	if next.Empty() {
		s.removeLocked(code, e)
		return next, nil
	}
	e.lobby = next
	return next.Clone(), nil
}

// Delete removes the room if present.
func (s *MemoryStore) Delete(ctx context.Context, code string) error {
	e := s.entry(code)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return ErrNotFound
	}
	s.removeLocked(code, e)
	return nil
}

// Len reports the number of live rooms.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Sweep deletes rooms not updated within ttl and returns how many it removed.
func (s *MemoryStore) Sweep(ttl time.Duration) int {
	s.mu.RLock()
	entries := make(map[string]*roomEntry, len(s.rooms))
	for code, e := range s.rooms {
		entries[code] = e
	}
	s.mu.RUnlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for code, e := range entries {
		e.mu.Lock()
		if !e.deleted && e.lobby.UpdatedAt.Before(cutoff) {
			s.removeLocked(code, e)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// RunJanitor sweeps idle rooms every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval, ttl time.Duration, logger logrus.FieldLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ttl); n > 0 {
				logger.WithField("rooms", n).Info("swept idle rooms")
			}
		}
	}
}

func (s *MemoryStore) entry(code string) *roomEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[code]
}

// removeLocked drops e from the map. Caller holds e.mu.
func (s *MemoryStore) removeLocked(code string, e *roomEntry) {
	e.deleted = true
	s.mu.Lock()
	if s.rooms[code] == e {
		delete(s.rooms, code)
	}
	s.mu.Unlock()
}
