package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"timebill/internal/core"
)

// Store keeps entries in a slice for the lifetime of the process.
type Store struct {
	mu    sync.Mutex
	items []core.Entry
}

func New(seed ...core.Entry) *Store {
	s := &Store{}
	for _, e := range seed {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.items = append(s.items, e)
	}
	return s
}

// Append stores the entry at the end of the sequence.
func (s *Store) Append(_ context.Context, e core.Entry) (core.Entry, int, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, 0, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return e, len(s.items) - 1, nil
}

// Replace overwrites the entry at index in place.
func (s *Store) Replace(_ context.Context, index int, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return core.Entry{}, err
	}
	e.ID = s.items[index].ID
	s.items[index] = e
	return e, nil
}

// Remove drops the entry at index; later entries move down one position.
func (s *Store) Remove(_ context.Context, index int) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIndex(index); err != nil {
		return core.Entry{}, err
	}
	removed := s.items[index]
	s.items = append(s.items[:index], s.items[index+1:]...)
	return removed, nil
}

// All returns a copy so callers cannot mutate the store.
func (s *Store) All(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entry{}, s.items...), nil
}

func (s *Store) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items), nil
}

// checkIndex must be called with mu held.
func (s *Store) checkIndex(index int) error {
	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("index %d of %d: %w", index, len(s.items), core.ErrInvalidIndex)
	}
	return nil
}
