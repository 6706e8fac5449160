package token

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
type MemoryStore struct {
	records map[string]*Record
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
	}
}

// Lookup retrieves the record for a token.
func (s *MemoryStore) Lookup(_ context.Context, token string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[HashToken(token)]
	if !ok {
		return nil, ErrNotFound
	}

	return rec, nil
}

// Name returns "memory".
func (s *MemoryStore) Name() string {
	return "memory"
}

// Put adds or replaces the record for a token.
func (s *MemoryStore) Put(token string, rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[HashToken(token)] = rec
}

// Revoke marks the record for a token as revoked.
func (s *MemoryStore) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[HashToken(token)]
	if !ok {
		return ErrNotFound
	}

	revoked := *rec
	revoked.Revoked = true
	s.records[HashToken(token)] = &revoked
	return nil
}

// Count returns the number of records in the store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ Store = (*MemoryStore)(nil)
