package basic

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrUserNotFound is returned when a username is unknown.
var ErrUserNotFound = errors.New("user not found")

// User is a Basic credential holder.
type User struct {
	Username     string
	PasswordHash string
	Roles        []string
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Store looks users up by name.
type Store interface {
	Get(ctx context.Context, username string) (*User, error)
}

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	users map[string]*User
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
	}
}

// Get retrieves a user by name.
func (s *MemoryStore) Get(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Put adds or replaces a user holding a precomputed hash.
func (s *MemoryStore) Put(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user
}

// AddUser hashes password and stores the user.
func (s *MemoryStore) AddUser(username, password string, roles []string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	s.Put(&User{Username: username, PasswordHash: hash, Roles: roles})
	return nil
}

// Usernames returns the stored usernames in sorted order.
func (s *MemoryStore) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches the bcrypt hash.
func ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var _ Store = (*MemoryStore)(nil)
