package memory

import (
	"context"
	"sync"
)

// Store is a process-local KV. Values are copied on the way in and out.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]byte
	writes  int
}

func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

// NewSeeded returns a KV pre-populated with entries, e.g. a previously persisted state.
func NewSeeded(entries map[string][]byte) *Store {
	s := New()
	for key, value := range entries {
		s.entries[key] = cloneBytes(value)
	}
	return s
}

func (s *Store) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(value), true, nil
}

func (s *Store) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = cloneBytes(value)
	s.writes++
	return nil
}

// Writes counts successful Save calls.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func cloneBytes(in []byte) []byte {
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
