package memory

import (
	"context"
	"sort"
	"sync"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

// ImpactTimeseriesStore is an in-memory implementation of
// storage.ImpactTimeseriesStore.
type ImpactTimeseriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ImpactPoint // keyed by (attack_id, seq)
}

// NewImpactTimeseriesStore creates a new in-memory impact timeseries store.
func NewImpactTimeseriesStore() *ImpactTimeseriesStore {
	return &ImpactTimeseriesStore{
		data: make(map[string]*domain.ImpactPoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate (attack_id, seq).
func (s *ImpactTimeseriesStore) InsertBulk(_ context.Context, points []*domain.ImpactPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.AttackID == "" {
			return storage.ErrInvalidInput
		}
		key := recordKey(p.AttackID, p.Seq)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		cp := *p
		s.data[recordKey(p.AttackID, p.Seq)] = &cp
	}

	return nil
}

// GetByAttackID retrieves all points for an attack, ordered by seq ASC.
func (s *ImpactTimeseriesStore) GetByAttackID(_ context.Context, attackID string) ([]*domain.ImpactPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ImpactPoint
	for _, p := range s.data {
		if p.AttackID == attackID {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

// GetByTimeRange retrieves points within [start, end] ms (inclusive), ordered by timestamp ASC.
func (s *ImpactTimeseriesStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.ImpactPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ImpactPoint
	for _, p := range s.data {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			cp := *p
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs < result[j].TimestampMs
		}
		if result[i].AttackID != result[j].AttackID {
			return result[i].AttackID < result[j].AttackID
		}
		return result[i].Seq < result[j].Seq
	})

	return result, nil
}

var _ storage.ImpactTimeseriesStore = (*ImpactTimeseriesStore)(nil)
