package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

func testResult(attackID, scenarioID string, createdAt int64) *domain.AttackResult {
	return &domain.AttackResult{
		AttackID:            attackID,
		ScenarioID:          scenarioID,
		TriggersLiquidation: true,
		MaxRepayable:        big.NewInt(5000),
		SeizeTokens:         big.NewInt(4),
		Profit:              big.NewInt(0),
		Status:              domain.AttackStatusReported,
		StartBlock:          100,
		EndBlock:            103,
		CreatedAt:           createdAt,
	}
}

func TestResultStore_InsertAndGet(t *testing.T) {
	store := NewAttackResultStore()
	ctx := context.Background()

	a := testResult("attack-1", domain.ScenarioPumpAndDump, 1704067200000)
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "attack-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ScenarioID != a.ScenarioID {
		t.Errorf("ScenarioID mismatch: got %s, want %s", got.ScenarioID, a.ScenarioID)
	}
	if !got.TriggersLiquidation {
		t.Error("TriggersLiquidation not preserved")
	}
	if got.MaxRepayable.Cmp(a.MaxRepayable) != 0 {
		t.Errorf("MaxRepayable mismatch: got %s, want %s", got.MaxRepayable, a.MaxRepayable)
	}
}

func TestResultStore_DuplicateKey(t *testing.T) {
	store := NewAttackResultStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testResult("attack-1", domain.ScenarioPumpAndDump, 1)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	err := store.Insert(ctx, testResult("attack-1", domain.ScenarioSandwich, 2))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestResultStore_NotFound(t *testing.T) {
	store := NewAttackResultStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResultStore_GetByScenarioAndStatus(t *testing.T) {
	store := NewAttackResultStore()
	ctx := context.Background()

	reported := testResult("attack-1", domain.ScenarioPumpAndDump, 2)
	reverted := testResult("attack-2", domain.ScenarioPumpAndDump, 1)
	reverted.Status = domain.AttackStatusReverted
	other := testResult("attack-3", domain.ScenarioSandwich, 3)

	for _, a := range []*domain.AttackResult{reported, reverted, other} {
		if err := store.Insert(ctx, a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	byScenario, err := store.GetByScenario(ctx, domain.ScenarioPumpAndDump)
	if err != nil {
		t.Fatalf("GetByScenario failed: %v", err)
	}
	if len(byScenario) != 2 {
		t.Fatalf("expected 2 results, got %d", len(byScenario))
	}
	// created_at ASC
	if byScenario[0].AttackID != "attack-2" {
		t.Errorf("expected attack-2 first, got %s", byScenario[0].AttackID)
	}

	byStatus, err := store.GetByStatus(ctx, domain.AttackStatusReverted)
	if err != nil {
		t.Fatalf("GetByStatus failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].AttackID != "attack-2" {
		t.Errorf("unexpected reverted results: %+v", byStatus)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 results, got %d", len(all))
	}
}

func TestResultStore_RecordsDeepCopied(t *testing.T) {
	store := NewAttackResultStore()
	ctx := context.Background()

	a := testResult("attack-1", domain.ScenarioPumpAndDump, 1)
	a.Records = []*domain.ManipulationRecord{testRecord("attack-1", 0)}
	if err := store.Insert(ctx, a); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	a.Records[0].ImpactBps = -1

	got, err := store.GetByID(ctx, "attack-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Records[0].ImpactBps != 350 {
		t.Errorf("stored result shares records with caller: %d", got.Records[0].ImpactBps)
	}
}
