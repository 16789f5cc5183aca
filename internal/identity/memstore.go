package identity

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory identity store. It stands in for the host
// identity provider in tests and local development. Safe for
// concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	nextID int
	users  map[string]map[string]*User // realm -> username -> user
}

// NewMemStore creates an empty in-memory identity store.
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, users: make(map[string]map[string]*User)}
}

func (s *MemStore) FindByUsername(_ context.Context, realm, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[realm][username]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *MemStore) Create(_ context.Context, realm, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[realm] == nil {
		s.users[realm] = make(map[string]*User)
	}
	if _, exists := s.users[realm][username]; exists {
		return nil, fmt.Errorf("identity user %q already exists", username)
	}

	user := &User{
		ID:        fmt.Sprintf("im-%d", s.nextID),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.users[realm][username] = user
	return copyUser(user), nil
}

func (s *MemStore) Update(_ context.Context, realm string, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for username, existing := range s.users[realm] {
		if existing.ID == user.ID {
			if username != user.Username {
				delete(s.users[realm], username)
			}
			s.users[realm][user.Username] = copyUser(user)
			return nil
		}
	}
	return ErrNotFound
}

func copyUser(u *User) *User {
	cp := *u
	if u.Attributes != nil {
		cp.Attributes = make(map[string][]string, len(u.Attributes))
		for k, v := range u.Attributes {
			vals := make([]string, len(v))
			copy(vals, v)
			cp.Attributes[k] = vals
		}
	}
	return &cp
}

// MemAttributeStore is an in-memory AttributeStore.
type MemAttributeStore struct {
	mu    sync.RWMutex
	attrs map[string]map[string][]string // userID -> name -> values
}

// NewMemAttributeStore creates an empty in-memory attribute store.
func NewMemAttributeStore() *MemAttributeStore {
	return &MemAttributeStore{attrs: make(map[string]map[string][]string)}
}

func (s *MemAttributeStore) Get(_ context.Context, userID, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals := s.attrs[userID][name]
	out := make([]string, len(vals))
	copy(out, vals)
	return out, nil
}

func (s *MemAttributeStore) Set(_ context.Context, userID, name string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attrs[userID] == nil {
		s.attrs[userID] = make(map[string][]string)
	}
	vals := make([]string, len(values))
	copy(vals, values)
	s.attrs[userID][name] = vals
	return nil
}

func (s *MemAttributeStore) Remove(_ context.Context, userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attrs[userID], name)
	return nil
}

func (s *MemAttributeStore) List(_ context.Context, userID string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.attrs[userID]))
	for name, vals := range s.attrs[userID] {
		cp := make([]string, len(vals))
		copy(cp, vals)
		out[name] = cp
	}
	return out, nil
}
