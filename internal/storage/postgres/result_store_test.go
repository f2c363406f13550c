package postgres

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

func testResult(attackID, scenarioID string, createdAt int64) *domain.AttackResult {
	maxRepayable, _ := new(big.Int).SetString("5000000000000000000000", 10)
	seizeTokens, _ := new(big.Int).SetString("4500000000000000000", 10)
	return &domain.AttackResult{
		AttackID:            attackID,
		ScenarioID:          scenarioID,
		TriggersLiquidation: true,
		MaxRepayable:        maxRepayable,
		SeizeTokens:         seizeTokens,
		Profit:              big.NewInt(-250),
		Status:              domain.AttackStatusReported,
		StartBlock:          100,
		EndBlock:            103,
		CreatedAt:           createdAt,
	}
}

func TestAttackResultStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAttackResultStore(pool)
	ctx := context.Background()

	a := testResult("attack-1", domain.ScenarioPumpAndDump, 1704067200000)
	require.NoError(t, store.Insert(ctx, a))

	got, err := store.GetByID(ctx, "attack-1")
	require.NoError(t, err)
	require.Equal(t, a.ScenarioID, got.ScenarioID)
	require.True(t, got.TriggersLiquidation)
	require.Equal(t, a.Status, got.Status)
	require.Equal(t, a.StartBlock, got.StartBlock)
	require.Equal(t, a.EndBlock, got.EndBlock)

	require.Zero(t, a.MaxRepayable.Cmp(got.MaxRepayable))
	require.Zero(t, a.SeizeTokens.Cmp(got.SeizeTokens))

	// Negative profit survives the NUMERIC round trip.
	require.Zero(t, a.Profit.Cmp(got.Profit))
}

func TestAttackResultStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAttackResultStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testResult("attack-1", domain.ScenarioPumpAndDump, 1)))
	require.ErrorIs(t, store.Insert(ctx, testResult("attack-1", domain.ScenarioSandwich, 2)), storage.ErrDuplicateKey)
}

func TestAttackResultStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAttackResultStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAttackResultStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAttackResultStore(pool)
	ctx := context.Background()

	reported := testResult("attack-1", domain.ScenarioPumpAndDump, 2)
	reverted := testResult("attack-2", domain.ScenarioPumpAndDump, 1)
	reverted.Status = domain.AttackStatusReverted
	other := testResult("attack-3", domain.ScenarioSandwich, 3)

	for _, a := range []*domain.AttackResult{reported, reverted, other} {
		require.NoError(t, store.Insert(ctx, a))
	}

	byScenario, err := store.GetByScenario(ctx, domain.ScenarioPumpAndDump)
	require.NoError(t, err)
	require.Len(t, byScenario, 2)
	require.Equal(t, "attack-2", byScenario[0].AttackID, "created_at ordering broken")

	byStatus, err := store.GetByStatus(ctx, domain.AttackStatusReverted)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, "attack-2", byStatus[0].AttackID)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
