// internal/storage/memory_store.go
package storage

import (
	"sort"
	"sync"

	"github.com/Corphon/ScenarioForgeMCP/internal/models"
)

// MemoryStore keeps scenarios in a process-wide map. It is the default store;
// lifetime equals process lifetime, there is no expiry.
type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]*models.Scenario
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios: make(map[string]*models.Scenario),
	}
}

// Get returns an independent copy of the stored aggregate.
func (m *MemoryStore) Get(id string) (*models.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scenario, exists := m.scenarios[id]
	if !exists {
		return nil, ErrNotFound
	}
	return scenario.DeepCopy(), nil
}

// Put stores a copy of the aggregate, replacing any previous state.
func (m *MemoryStore) Put(scenario *models.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scenarios[scenario.Metadata.ID] = scenario.DeepCopy()
	return nil
}

// Delete removes the aggregate. Removal is irreversible; there is no
// soft-delete.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.scenarios[id]; !exists {
		return ErrNotFound
	}
	delete(m.scenarios, id)
	return nil
}

// List returns copies of all stored aggregates, newest first.
func (m *MemoryStore) List() ([]*models.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Scenario, 0, len(m.scenarios))
	for _, scenario := range m.scenarios {
		result = append(result, scenario.DeepCopy())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Metadata.CreatedAt.After(result[j].Metadata.CreatedAt)
	})

	return result, nil
}
