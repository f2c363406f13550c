// Package memory provides in-memory store implementations used by tests and
// single-run attack sessions that do not need persistence.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

// ManipulationRecordStore is an in-memory implementation of
// storage.ManipulationRecordStore.
type ManipulationRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ManipulationRecord // keyed by (attack_id, seq)
}

// NewManipulationRecordStore creates a new in-memory record store.
func NewManipulationRecordStore() *ManipulationRecordStore {
	return &ManipulationRecordStore{
		data: make(map[string]*domain.ManipulationRecord),
	}
}

func recordKey(attackID string, seq int) string {
	return fmt.Sprintf("%s/%d", attackID, seq)
}

// Insert adds a new record. Returns ErrDuplicateKey if (attack_id, seq) exists.
func (s *ManipulationRecordStore) Insert(_ context.Context, r *domain.ManipulationRecord) error {
	if r == nil || r.AttackID == "" || r.Seq < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(r.AttackID, r.Seq)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[key] = r.Clone()
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ManipulationRecordStore) InsertBulk(_ context.Context, records []*domain.ManipulationRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.AttackID == "" || r.Seq < 0 {
			return storage.ErrInvalidInput
		}
		key := recordKey(r.AttackID, r.Seq)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range records {
		s.data[recordKey(r.AttackID, r.Seq)] = r.Clone()
	}

	return nil
}

// GetByAttackID retrieves all records for an attack, ordered by seq ASC.
func (s *ManipulationRecordStore) GetByAttackID(_ context.Context, attackID string) ([]*domain.ManipulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ManipulationRecord
	for _, r := range s.data {
		if r.AttackID == attackID {
			result = append(result, r.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

// GetByKind retrieves all records of a manipulation kind, ordered by (attack_id, seq) ASC.
func (s *ManipulationRecordStore) GetByKind(_ context.Context, kind string) ([]*domain.ManipulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ManipulationRecord
	for _, r := range s.data {
		if r.Kind == kind {
			result = append(result, r.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].AttackID != result[j].AttackID {
			return result[i].AttackID < result[j].AttackID
		}
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

// GetByTimeRange retrieves records with logical timestamp within [start, end] (inclusive).
func (s *ManipulationRecordStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.ManipulationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ManipulationRecord
	for _, r := range s.data {
		if r.Timestamp >= start && r.Timestamp <= end {
			result = append(result, r.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		if result[i].AttackID != result[j].AttackID {
			return result[i].AttackID < result[j].AttackID
		}
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

var _ storage.ManipulationRecordStore = (*ManipulationRecordStore)(nil)
