package fake

import (
	"context"
	"sync"

	"pgd/internal/instance"
	"pgd/internal/lifecycle"
)

var _ lifecycle.StateStore = (*StateStore)(nil)

// StateStore is an in-memory implementation of lifecycle.StateStore.
type StateStore struct {
	CallRecorder
	mu     sync.Mutex
	states map[string]instance.State

	LoadErr   func(ctx context.Context, key string) error
	SaveErr   func(ctx context.Context, key string, st instance.State) error
	DeleteErr func(ctx context.Context, key string) error
}

// NewStateStore creates a StateStore with no stored state.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]instance.State)}
}

// Get returns the stored state without recording a call.
func (s *StateStore) Get(key string) (instance.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	return st, ok
}

func (s *StateStore) Load(ctx context.Context, key string) (instance.State, bool, error) {
	s.record("Load", key)
	if s.LoadErr != nil {
		if err := s.LoadErr(ctx, key); err != nil {
			return instance.State{}, false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[key]
	return st, ok, nil
}

func (s *StateStore) Save(ctx context.Context, key string, st instance.State) error {
	s.record("Save", key, st)
	if s.SaveErr != nil {
		if err := s.SaveErr(ctx, key, st); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[key] = st
	return nil
}

func (s *StateStore) Delete(ctx context.Context, key string) error {
	s.record("Delete", key)
	if s.DeleteErr != nil {
		if err := s.DeleteErr(ctx, key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, key)
	return nil
}
