package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

// ManipulationRecordStore implements storage.ManipulationRecordStore using PostgreSQL.
type ManipulationRecordStore struct {
	pool *Pool
}

// NewManipulationRecordStore creates a new ManipulationRecordStore.
func NewManipulationRecordStore(pool *Pool) *ManipulationRecordStore {
	return &ManipulationRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ManipulationRecordStore = (*ManipulationRecordStore)(nil)

const insertRecordQuery = `
	INSERT INTO manipulation_records (
		attack_id, seq, kind, target_asset,
		original_price, manipulated_price, impact_bps,
		block, ts, created_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9, $10
	)
`

const selectRecordColumns = `
	attack_id, seq, kind, target_asset,
	original_price::text, manipulated_price::text, impact_bps,
	block, ts, created_at
`

// Insert adds a new record. Returns ErrDuplicateKey if (attack_id, seq) exists.
func (s *ManipulationRecordStore) Insert(ctx context.Context, r *domain.ManipulationRecord) error {
	if r == nil || r.AttackID == "" || r.Seq < 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertRecordQuery,
		r.AttackID, r.Seq, r.Kind, r.TargetAsset,
		r.OriginalPrice.String(), r.ManipulatedPrice.String(), r.ImpactBps,
		int64(r.Block), r.Timestamp, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert manipulation record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *ManipulationRecordStore) InsertBulk(ctx context.Context, records []*domain.ManipulationRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r == nil || r.AttackID == "" || r.Seq < 0 {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, insertRecordQuery,
			r.AttackID, r.Seq, r.Kind, r.TargetAsset,
			r.OriginalPrice.String(), r.ManipulatedPrice.String(), r.ImpactBps,
			int64(r.Block), r.Timestamp, r.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert manipulation record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByAttackID retrieves all records for an attack, ordered by seq ASC.
func (s *ManipulationRecordStore) GetByAttackID(ctx context.Context, attackID string) ([]*domain.ManipulationRecord, error) {
	query := `
		SELECT ` + selectRecordColumns + `
		FROM manipulation_records
		WHERE attack_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, attackID)
	if err != nil {
		return nil, fmt.Errorf("get manipulation records by attack id: %w", err)
	}
	defer rows.Close()

	return scanManipulationRecords(rows)
}

// GetByKind retrieves all records of a manipulation kind, ordered by (attack_id, seq) ASC.
func (s *ManipulationRecordStore) GetByKind(ctx context.Context, kind string) ([]*domain.ManipulationRecord, error) {
	query := `
		SELECT ` + selectRecordColumns + `
		FROM manipulation_records
		WHERE kind = $1
		ORDER BY attack_id ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, fmt.Errorf("get manipulation records by kind: %w", err)
	}
	defer rows.Close()

	return scanManipulationRecords(rows)
}

// GetByTimeRange retrieves records with logical timestamp within [start, end] (inclusive).
func (s *ManipulationRecordStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ManipulationRecord, error) {
	query := `
		SELECT ` + selectRecordColumns + `
		FROM manipulation_records
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts ASC, attack_id ASC, seq ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get manipulation records by time range: %w", err)
	}
	defer rows.Close()

	return scanManipulationRecords(rows)
}

// scanManipulationRecords scans multiple rows into a slice of ManipulationRecord.
func scanManipulationRecords(rows pgx.Rows) ([]*domain.ManipulationRecord, error) {
	var records []*domain.ManipulationRecord

	for rows.Next() {
		var r domain.ManipulationRecord
		var originalPrice, manipulatedPrice string
		var block int64

		err := rows.Scan(
			&r.AttackID, &r.Seq, &r.Kind, &r.TargetAsset,
			&originalPrice, &manipulatedPrice, &r.ImpactBps,
			&block, &r.Timestamp, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan manipulation record row: %w", err)
		}

		r.OriginalPrice, err = parseNumeric(originalPrice)
		if err != nil {
			return nil, fmt.Errorf("parse original_price: %w", err)
		}
		r.ManipulatedPrice, err = parseNumeric(manipulatedPrice)
		if err != nil {
			return nil, fmt.Errorf("parse manipulated_price: %w", err)
		}
		r.Block = uint64(block)

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manipulation record rows: %w", err)
	}

	return records, nil
}

// parseNumeric converts a NUMERIC decimal string back into a big.Int.
func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	return v, nil
}
