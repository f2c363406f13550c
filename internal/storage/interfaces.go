package storage

import (
	"context"

	"amm-attack-lab/internal/domain"
)

// ManipulationRecordStore provides access to manipulation_records storage.
type ManipulationRecordStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if (attack_id, seq) exists.
	Insert(ctx context.Context, r *domain.ManipulationRecord) error

	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, records []*domain.ManipulationRecord) error

	// GetByAttackID retrieves all records for an attack, ordered by seq ASC.
	GetByAttackID(ctx context.Context, attackID string) ([]*domain.ManipulationRecord, error)

	// GetByKind retrieves all records of a manipulation kind, ordered by
	// (attack_id, seq) ASC.
	GetByKind(ctx context.Context, kind string) ([]*domain.ManipulationRecord, error)

	// GetByTimeRange retrieves records with logical timestamp within
	// [start, end] (inclusive), ordered by (timestamp, attack_id, seq) ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ManipulationRecord, error)
}

// AttackResultStore provides access to attack_results storage. Result rows do
// not carry the record log; callers join it via ManipulationRecordStore.
type AttackResultStore interface {
	// Insert adds a new result. Returns ErrDuplicateKey if attack_id exists.
	Insert(ctx context.Context, a *domain.AttackResult) error

	// GetByID retrieves a result by attack ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, attackID string) (*domain.AttackResult, error)

	// GetByScenario retrieves all results for a scenario, ordered by created_at ASC.
	GetByScenario(ctx context.Context, scenarioID string) ([]*domain.AttackResult, error)

	// GetByStatus retrieves all results with a given status, ordered by created_at ASC.
	GetByStatus(ctx context.Context, status string) ([]*domain.AttackResult, error)

	// GetAll retrieves all results, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.AttackResult, error)
}

// ImpactTimeseriesStore provides access to impact_timeseries storage.
type ImpactTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (attack_id, seq).
	InsertBulk(ctx context.Context, points []*domain.ImpactPoint) error

	// GetByAttackID retrieves all points for an attack, ordered by seq ASC.
	GetByAttackID(ctx context.Context, attackID string) ([]*domain.ImpactPoint, error)

	// GetByTimeRange retrieves points within [start, end] ms (inclusive),
	// ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ImpactPoint, error)
}
