// Package session keeps server-side login state. The client holds only a
// signed, opaque session identifier; the store maps it to a user ID.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when a session is missing, expired or tampered with.
var ErrNoSession = errors.New("no session")

// Store persists session records
type Store interface {
	Get(ctx context.Context, id string) (userID string, err error)
	Save(ctx context.Context, id, userID string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Sweeper is implemented by stores that must purge expired records themselves
type Sweeper interface {
	Sweep(now time.Time) int
}

type memoryEntry struct {
	userID  string
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[id]
	if !ok || !s.now().Before(entry.expires) {
		return "", ErrNoSession
	}
	return entry.userID, nil
}

func (s *MemoryStore) Save(ctx context.Context, id, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = memoryEntry{userID: userID, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Sweep removes sessions that expired before now and returns how many were dropped
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		if !now.Before(entry.expires) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
