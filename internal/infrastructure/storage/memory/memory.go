// Package memory is an in-process session storage. Nothing survives the
// process; it backs tests and SESSION_STORE=memory.
package memory

import (
	"context"
	"sync"
)

type Storage struct {
	mu     sync.Mutex
	values map[string]string
	// Writes counts successful writes. Tests use it to assert persistence.
	Writes int
}

func New() *Storage {
	return &Storage{values: make(map[string]string)}
}

func (s *Storage) Read(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Storage) Write(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.Writes++
	return nil
}

func (s *Storage) Clear(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

// Len reports how many keys are stored.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
