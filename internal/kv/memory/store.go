// Package memory stores key-value pairs in process memory, for
// development and tests.
package memory

import (
	"context"
	"sync"
)

type entry struct {
	value       []byte
	contentType string
}

// Store is a map-backed KeyValueStore safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]entry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{data: make(map[string]entry)}
}

// Get returns the stored value for key, ok=false when absent.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set stores the value under key, overwriting any prior value.
func (s *Store) Set(_ context.Context, key string, value []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{
		value:       append([]byte(nil), value...),
		contentType: contentType,
	}
	return nil
}

// ContentType returns the content type recorded for key, for tests.
func (s *Store) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[key].contentType
}

// Len reports the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
