package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/urlmonitor/internal/domain"
	"github.com/hamed0406/urlmonitor/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)
var _ repo.Deleter = (*Store)(nil)

// Store keeps state in process memory. Useful for dry runs and tests.
type Store struct {
	mu     sync.RWMutex
	states domain.States
	saves  int
}

func New() *Store {
	return &Store{states: domain.States{}}
}

func (m *Store) Load(ctx context.Context) (domain.States, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.states.Clone(), nil
}

func (m *Store) Save(ctx context.Context, states domain.States) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = states.Clone()
	m.saves++
	return nil
}

func (m *Store) Delete(ctx context.Context, id domain.TargetID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[id]; !ok {
		return false, nil
	}
	delete(m.states, id)
	return true, nil
}

// Saves returns how many times Save was called.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
