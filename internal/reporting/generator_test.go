package reporting

import (
	"context"
	"math/big"
	"strings"
	"testing"
	"time"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.AttackResultStore, *memory.ManipulationRecordStore) {
	t.Helper()
	ctx := context.Background()

	resultStore := memory.NewAttackResultStore()
	recordStore := memory.NewManipulationRecordStore()

	results := []*domain.AttackResult{
		{
			AttackID:            "a1",
			ScenarioID:          domain.ScenarioPumpAndDump,
			TriggersLiquidation: true,
			MaxRepayable:        big.NewInt(5000),
			SeizeTokens:         big.NewInt(4),
			Profit:              big.NewInt(0),
			Status:              domain.AttackStatusReported,
			StartBlock:          100,
			EndBlock:            102,
			CreatedAt:           1000,
		},
		{
			AttackID:            "a2",
			ScenarioID:          domain.ScenarioSandwich,
			TriggersLiquidation: false,
			MaxRepayable:        big.NewInt(0),
			SeizeTokens:         big.NewInt(0),
			Profit:              big.NewInt(250),
			Status:              domain.AttackStatusReported,
			StartBlock:          103,
			EndBlock:            104,
			CreatedAt:           2000,
		},
		{
			AttackID:            "a3",
			ScenarioID:          domain.ScenarioPumpAndDump,
			TriggersLiquidation: false,
			MaxRepayable:        big.NewInt(0),
			SeizeTokens:         big.NewInt(0),
			Profit:              big.NewInt(0),
			Status:              domain.AttackStatusReverted,
			StartBlock:          105,
			EndBlock:            105,
			CreatedAt:           3000,
		},
	}
	for _, r := range results {
		if err := resultStore.Insert(ctx, r); err != nil {
			t.Fatalf("Insert result failed: %v", err)
		}
	}

	records := []*domain.ManipulationRecord{
		{AttackID: "a1", Seq: 0, Kind: domain.ManipulationPump, TargetAsset: "ETH",
			OriginalPrice: big.NewInt(2000), ManipulatedPrice: big.NewInt(2500),
			ImpactBps: 1800, Block: 100, Timestamp: 1},
		{AttackID: "a1", Seq: 1, Kind: domain.ManipulationDump, TargetAsset: "ETH",
			OriginalPrice: big.NewInt(2500), ManipulatedPrice: big.NewInt(1200),
			ImpactBps: 2400, Block: 101, Timestamp: 2},
		{AttackID: "a2", Seq: 0, Kind: domain.ManipulationSandwich, TargetAsset: "ETH",
			OriginalPrice: big.NewInt(2000), ManipulatedPrice: big.NewInt(2010),
			ImpactBps: 40, Block: 103, Timestamp: 3},
	}
	for _, r := range records {
		if err := recordStore.Insert(ctx, r); err != nil {
			t.Fatalf("Insert record failed: %v", err)
		}
	}

	return resultStore, recordStore
}

func TestGenerate_Summary(t *testing.T) {
	resultStore, recordStore := setupTestData(t)

	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gen := NewGenerator(resultStore, recordStore).
		WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt not from injected clock: %v", report.GeneratedAt)
	}
	if report.ScenarioCount != 2 {
		t.Errorf("expected 2 scenarios, got %d", report.ScenarioCount)
	}
	if report.Summary.TotalAttacks != 3 {
		t.Errorf("expected 3 attacks, got %d", report.Summary.TotalAttacks)
	}
	if report.Summary.Reported != 2 || report.Summary.Reverted != 1 {
		t.Errorf("status counts wrong: reported %d, reverted %d",
			report.Summary.Reported, report.Summary.Reverted)
	}
	if report.Summary.LiquidationsTriggered != 1 {
		t.Errorf("expected 1 liquidation, got %d", report.Summary.LiquidationsTriggered)
	}
	if report.Summary.TotalProfit != "250" {
		t.Errorf("expected total profit 250, got %s", report.Summary.TotalProfit)
	}
	if report.Summary.DateRangeStart != 1000 || report.Summary.DateRangeEnd != 3000 {
		t.Errorf("date range wrong: %d-%d",
			report.Summary.DateRangeStart, report.Summary.DateRangeEnd)
	}

	// Attacks ordered by created_at
	if len(report.Attacks) != 3 || report.Attacks[0].AttackID != "a1" || report.Attacks[2].AttackID != "a3" {
		t.Errorf("attack rows not ordered: %+v", report.Attacks)
	}
}

func TestGenerate_KindAggregates(t *testing.T) {
	resultStore, recordStore := setupTestData(t)

	report, err := NewGenerator(resultStore, recordStore).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(report.KindAggregates) != 3 {
		t.Fatalf("expected 3 kinds, got %d", len(report.KindAggregates))
	}

	// Sorted by kind: dump, pump, sandwich
	dump := report.KindAggregates[0]
	if dump.Kind != domain.ManipulationDump || dump.Count != 1 ||
		dump.MeanImpactBps != 2400 || dump.MaxImpactBps != 2400 || dump.CriticalCount != 1 {
		t.Errorf("unexpected dump aggregate: %+v", dump)
	}
	sandwich := report.KindAggregates[2]
	if sandwich.Kind != domain.ManipulationSandwich || sandwich.CriticalCount != 0 {
		t.Errorf("unexpected sandwich aggregate: %+v", sandwich)
	}
}

func TestGenerate_CriticalThreshold(t *testing.T) {
	resultStore, recordStore := setupTestData(t)

	// Default threshold: the 1800 and 2400 bps records qualify.
	report, err := NewGenerator(resultStore, recordStore).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(report.CriticalEvents) != 2 {
		t.Fatalf("expected 2 critical events, got %d", len(report.CriticalEvents))
	}
	if report.CriticalEvents[0].Seq != 0 || report.CriticalEvents[1].Seq != 1 {
		t.Errorf("critical events not ordered by seq: %+v", report.CriticalEvents)
	}

	// Raised threshold keeps only the dump.
	report, err = NewGenerator(resultStore, recordStore).
		WithCriticalThreshold(2000).
		Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(report.CriticalEvents) != 1 || report.CriticalEvents[0].Kind != domain.ManipulationDump {
		t.Errorf("unexpected critical events at 2000 bps: %+v", report.CriticalEvents)
	}
}

func TestRenderMarkdown(t *testing.T) {
	resultStore, recordStore := setupTestData(t)

	report, err := NewGenerator(resultStore, recordStore).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Attack Simulation Report",
		"| Total Attacks | 3 |",
		"| Liquidations Triggered | 1 |",
		"## Impact by Manipulation Kind",
		"## Critical Events",
		"| a1 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	resultStore, recordStore := setupTestData(t)

	report, err := NewGenerator(resultStore, recordStore).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderCSV(report.Attacks)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "attack_id,scenario_id,status") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "a1") || !strings.Contains(lines[1], "true") {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}
