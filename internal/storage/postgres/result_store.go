package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

// AttackResultStore implements storage.AttackResultStore using PostgreSQL.
// Result rows do not carry the record log; callers join it via
// ManipulationRecordStore.
type AttackResultStore struct {
	pool *Pool
}

// NewAttackResultStore creates a new AttackResultStore.
func NewAttackResultStore(pool *Pool) *AttackResultStore {
	return &AttackResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AttackResultStore = (*AttackResultStore)(nil)

const selectResultColumns = `
	attack_id, scenario_id, triggers_liquidation,
	max_repayable::text, seize_tokens::text, profit::text,
	status, start_block, end_block, created_at
`

// Insert adds a new result. Returns ErrDuplicateKey if attack_id exists.
func (s *AttackResultStore) Insert(ctx context.Context, a *domain.AttackResult) error {
	if a == nil || a.AttackID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO attack_results (
			attack_id, scenario_id, triggers_liquidation,
			max_repayable, seize_tokens, profit,
			status, start_block, end_block, created_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		a.AttackID, a.ScenarioID, a.TriggersLiquidation,
		a.MaxRepayable.String(), a.SeizeTokens.String(), a.Profit.String(),
		a.Status, int64(a.StartBlock), int64(a.EndBlock), a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert attack result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by attack ID. Returns ErrNotFound if not exists.
func (s *AttackResultStore) GetByID(ctx context.Context, attackID string) (*domain.AttackResult, error) {
	query := `
		SELECT ` + selectResultColumns + `
		FROM attack_results
		WHERE attack_id = $1
	`

	row := s.pool.QueryRow(ctx, query, attackID)
	a, err := scanAttackResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get attack result by id: %w", err)
	}
	return a, nil
}

// GetByScenario retrieves all results for a scenario, ordered by created_at ASC.
func (s *AttackResultStore) GetByScenario(ctx context.Context, scenarioID string) ([]*domain.AttackResult, error) {
	query := `
		SELECT ` + selectResultColumns + `
		FROM attack_results
		WHERE scenario_id = $1
		ORDER BY created_at ASC, attack_id ASC
	`

	rows, err := s.pool.Query(ctx, query, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("get attack results by scenario: %w", err)
	}
	defer rows.Close()

	return scanAttackResults(rows)
}

// GetByStatus retrieves all results with a given status, ordered by created_at ASC.
func (s *AttackResultStore) GetByStatus(ctx context.Context, status string) ([]*domain.AttackResult, error) {
	query := `
		SELECT ` + selectResultColumns + `
		FROM attack_results
		WHERE status = $1
		ORDER BY created_at ASC, attack_id ASC
	`

	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("get attack results by status: %w", err)
	}
	defer rows.Close()

	return scanAttackResults(rows)
}

// GetAll retrieves all results, ordered by created_at ASC.
func (s *AttackResultStore) GetAll(ctx context.Context) ([]*domain.AttackResult, error) {
	query := `
		SELECT ` + selectResultColumns + `
		FROM attack_results
		ORDER BY created_at ASC, attack_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all attack results: %w", err)
	}
	defer rows.Close()

	return scanAttackResults(rows)
}

// scanAttackResult scans a single row into an AttackResult.
func scanAttackResult(row pgx.Row) (*domain.AttackResult, error) {
	var a domain.AttackResult
	var maxRepayable, seizeTokens, profit string
	var startBlock, endBlock int64

	err := row.Scan(
		&a.AttackID, &a.ScenarioID, &a.TriggersLiquidation,
		&maxRepayable, &seizeTokens, &profit,
		&a.Status, &startBlock, &endBlock, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.MaxRepayable, err = parseNumeric(maxRepayable); err != nil {
		return nil, fmt.Errorf("parse max_repayable: %w", err)
	}
	if a.SeizeTokens, err = parseNumeric(seizeTokens); err != nil {
		return nil, fmt.Errorf("parse seize_tokens: %w", err)
	}
	if a.Profit, err = parseNumeric(profit); err != nil {
		return nil, fmt.Errorf("parse profit: %w", err)
	}
	a.StartBlock = uint64(startBlock)
	a.EndBlock = uint64(endBlock)

	return &a, nil
}

// scanAttackResults scans multiple rows into a slice of AttackResult.
func scanAttackResults(rows pgx.Rows) ([]*domain.AttackResult, error) {
	var results []*domain.AttackResult

	for rows.Next() {
		a, err := scanAttackResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attack result row: %w", err)
		}
		results = append(results, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attack result rows: %w", err)
	}

	return results, nil
}
