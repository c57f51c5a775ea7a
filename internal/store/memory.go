package store

import (
	"sync"

	"github.com/keepmind9/slackbridge/internal/slack"
)

// MemoryStore is a process-local user store. Records are copied on the way
// in and out so callers can never mutate stored state through a shared
// pointer.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*slack.User
}

// NewMemoryStore creates an empty in-memory user store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*slack.User)}
}

// Get returns the stored record for the given user ID
func (s *MemoryStore) Get(userID string) (*slack.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, false
	}
	return copyUser(u), true
}

// Set stores the given record, replacing any previous one
func (s *MemoryStore) Set(user *slack.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = copyUser(user)
	return nil
}

// Len returns the number of stored users
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Close releases nothing for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

func copyUser(u *slack.User) *slack.User {
	c := *u
	if u.Profile != nil {
		c.Profile = make(map[string]any, len(u.Profile))
		for k, v := range u.Profile {
			c.Profile[k] = v
		}
	}
	if u.Extra != nil {
		c.Extra = make(map[string]any, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}
