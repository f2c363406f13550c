package memory

import (
	"context"
	"sort"
	"sync"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

// AttackResultStore is an in-memory implementation of storage.AttackResultStore.
type AttackResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AttackResult // keyed by attack_id
}

// NewAttackResultStore creates a new in-memory result store.
func NewAttackResultStore() *AttackResultStore {
	return &AttackResultStore{
		data: make(map[string]*domain.AttackResult),
	}
}

// Insert adds a new result. Returns ErrDuplicateKey if attack_id exists.
func (s *AttackResultStore) Insert(_ context.Context, a *domain.AttackResult) error {
	if a == nil || a.AttackID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AttackID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[a.AttackID] = a.Clone()
	return nil
}

// GetByID retrieves a result by attack ID. Returns ErrNotFound if not exists.
func (s *AttackResultStore) GetByID(_ context.Context, attackID string) (*domain.AttackResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[attackID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return a.Clone(), nil
}

// GetByScenario retrieves all results for a scenario, ordered by created_at ASC.
func (s *AttackResultStore) GetByScenario(_ context.Context, scenarioID string) ([]*domain.AttackResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AttackResult
	for _, a := range s.data {
		if a.ScenarioID == scenarioID {
			result = append(result, a.Clone())
		}
	}

	sortResults(result)
	return result, nil
}

// GetByStatus retrieves all results with a given status, ordered by created_at ASC.
func (s *AttackResultStore) GetByStatus(_ context.Context, status string) ([]*domain.AttackResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.AttackResult
	for _, a := range s.data {
		if a.Status == status {
			result = append(result, a.Clone())
		}
	}

	sortResults(result)
	return result, nil
}

// GetAll retrieves all results, ordered by created_at ASC.
func (s *AttackResultStore) GetAll(_ context.Context) ([]*domain.AttackResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AttackResult, 0, len(s.data))
	for _, a := range s.data {
		result = append(result, a.Clone())
	}

	sortResults(result)
	return result, nil
}

func sortResults(results []*domain.AttackResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt != results[j].CreatedAt {
			return results[i].CreatedAt < results[j].CreatedAt
		}
		return results[i].AttackID < results[j].AttackID
	})
}

var _ storage.AttackResultStore = (*AttackResultStore)(nil)
