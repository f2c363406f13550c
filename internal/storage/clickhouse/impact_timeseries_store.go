package clickhouse

import (
	"context"
	"fmt"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

// ImpactTimeseriesStore implements storage.ImpactTimeseriesStore using ClickHouse.
type ImpactTimeseriesStore struct {
	conn *Conn
}

// NewImpactTimeseriesStore creates a new ImpactTimeseriesStore.
func NewImpactTimeseriesStore(conn *Conn) *ImpactTimeseriesStore {
	return &ImpactTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ImpactTimeseriesStore = (*ImpactTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (attack_id, seq).
// MergeTree does not enforce uniqueness, so duplicates are checked explicitly
// before the batch is sent.
func (s *ImpactTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.ImpactPoint) error {
	if len(points) == 0 {
		return nil
	}

	type key struct {
		attackID string
		seq      int
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.AttackID == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.AttackID, p.Seq}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, p := range points {
		exists, err := s.exists(ctx, p.AttackID, p.Seq)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO impact_timeseries (
			attack_id, seq, kind, target_asset,
			timestamp_ms, block, original_price, manipulated_price, impact_bps
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.AttackID, uint32(p.Seq), p.Kind, p.TargetAsset,
			uint64(p.TimestampMs), p.Block, p.OriginalPrice, p.ManipulatedPrice, p.ImpactBps,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAttackID retrieves all points for an attack, ordered by seq ASC.
func (s *ImpactTimeseriesStore) GetByAttackID(ctx context.Context, attackID string) ([]*domain.ImpactPoint, error) {
	query := `
		SELECT attack_id, seq, kind, target_asset,
		       timestamp_ms, block, original_price, manipulated_price, impact_bps
		FROM impact_timeseries
		WHERE attack_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.conn.Query(ctx, query, attackID)
	if err != nil {
		return nil, fmt.Errorf("query by attack id: %w", err)
	}
	defer rows.Close()

	return scanImpactPoints(rows)
}

// GetByTimeRange retrieves points within [start, end] ms (inclusive), ordered by timestamp ASC.
func (s *ImpactTimeseriesStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ImpactPoint, error) {
	query := `
		SELECT attack_id, seq, kind, target_asset,
		       timestamp_ms, block, original_price, manipulated_price, impact_bps
		FROM impact_timeseries
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, attack_id ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanImpactPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *ImpactTimeseriesStore) exists(ctx context.Context, attackID string, seq int) (bool, error) {
	query := `
		SELECT count(*) FROM impact_timeseries
		WHERE attack_id = ? AND seq = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, attackID, uint32(seq)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanImpactPoints scans multiple rows.
func scanImpactPoints(rows chRows) ([]*domain.ImpactPoint, error) {
	var points []*domain.ImpactPoint

	for rows.Next() {
		var p domain.ImpactPoint
		var seq uint32
		var timestampMs uint64

		err := rows.Scan(
			&p.AttackID, &seq, &p.Kind, &p.TargetAsset,
			&timestampMs, &p.Block, &p.OriginalPrice, &p.ManipulatedPrice, &p.ImpactBps,
		)
		if err != nil {
			return nil, fmt.Errorf("scan impact point row: %w", err)
		}

		p.Seq = int(seq)
		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate impact point rows: %w", err)
	}

	return points, nil
}
