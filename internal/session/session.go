// Package session is the session collaborator: a small key-value store
// holding the authenticated user. The bill core only ever reads the "user"
// entry; how the entry got there is outside its scope.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// UserKey is the entry the bill core reads.
const UserKey = "user"

// User is the serialized shape of the authenticated user entry.
type User struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// Store is a key-value session store. Values are serialized strings, matching
// the contract of the browser-side storage the service replaces.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

var ErrNoUser = errors.New("no authenticated user in session")

// MemoryStore is the in-process Store used by the service and by tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// SeedUser stores u as the authenticated user.
func SeedUser(s Store, u User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal session user: %w", err)
	}
	s.Set(UserKey, string(data))
	return nil
}

// CurrentUser reads and deserializes the authenticated user.
func CurrentUser(s Store) (User, error) {
	raw, ok := s.Get(UserKey)
	if !ok || raw == "" {
		return User{}, ErrNoUser
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return User{}, fmt.Errorf("unmarshal session user: %w", err)
	}
	if u.Email == "" {
		return User{}, ErrNoUser
	}
	return u, nil
}
