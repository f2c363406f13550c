package reporting

import (
	"context"
	"math/big"
	"sort"
	"time"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/storage"
)

// DefaultCriticalThresholdBps marks a manipulation as critical when its
// impact reaches 10% of reference-trade output.
const DefaultCriticalThresholdBps = 1000

// Generator produces reports from stored attack data.
type Generator struct {
	resultStore storage.AttackResultStore
	recordStore storage.ManipulationRecordStore
	criticalBps int64
	now         func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator with the default critical
// threshold.
func NewGenerator(resultStore storage.AttackResultStore, recordStore storage.ManipulationRecordStore) *Generator {
	return &Generator{
		resultStore: resultStore,
		recordStore: recordStore,
		criticalBps: DefaultCriticalThresholdBps,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithCriticalThreshold overrides the critical impact threshold.
func (g *Generator) WithCriticalThreshold(bps int64) *Generator {
	g.criticalBps = bps
	return g
}

// Generate produces a complete report over all stored attacks.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	results, err := g.resultStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	scenarioSet := make(map[string]struct{})
	summary := AttackSummary{TotalAttacks: len(results)}
	attacks := make([]AttackRow, 0, len(results))
	totalProfit := new(big.Int)
	var allRecords []*domain.ManipulationRecord

	for _, r := range results {
		scenarioSet[r.ScenarioID] = struct{}{}

		switch r.Status {
		case domain.AttackStatusReported:
			summary.Reported++
		case domain.AttackStatusReverted:
			summary.Reverted++
		}
		if r.TriggersLiquidation {
			summary.LiquidationsTriggered++
		}
		if r.Profit != nil {
			totalProfit.Add(totalProfit, r.Profit)
		}

		if summary.DateRangeStart == 0 || r.CreatedAt < summary.DateRangeStart {
			summary.DateRangeStart = r.CreatedAt
		}
		if r.CreatedAt > summary.DateRangeEnd {
			summary.DateRangeEnd = r.CreatedAt
		}

		records, err := g.recordStore.GetByAttackID(ctx, r.AttackID)
		if err != nil {
			return nil, err
		}
		allRecords = append(allRecords, records...)

		attacks = append(attacks, AttackRow{
			AttackID:            r.AttackID,
			ScenarioID:          r.ScenarioID,
			Status:              r.Status,
			TriggersLiquidation: r.TriggersLiquidation,
			MaxRepayable:        r.MaxRepayable.String(),
			SeizeTokens:         r.SeizeTokens.String(),
			Profit:              r.Profit.String(),
			RecordCount:         len(records),
			StartBlock:          r.StartBlock,
			EndBlock:            r.EndBlock,
			CreatedAt:           r.CreatedAt,
		})
	}
	summary.TotalRecords = len(allRecords)
	summary.TotalProfit = totalProfit.String()

	sort.Slice(attacks, func(i, j int) bool {
		if attacks[i].CreatedAt != attacks[j].CreatedAt {
			return attacks[i].CreatedAt < attacks[j].CreatedAt
		}
		return attacks[i].AttackID < attacks[j].AttackID
	})

	return &Report{
		GeneratedAt:          g.now(),
		ScenarioCount:        len(scenarioSet),
		CriticalThresholdBps: g.criticalBps,
		Summary:              summary,
		KindAggregates:       g.aggregateByKind(allRecords),
		CriticalEvents:       g.criticalEvents(allRecords),
		Attacks:              attacks,
	}, nil
}

// aggregateByKind computes count, mean and max impact per manipulation kind.
func (g *Generator) aggregateByKind(records []*domain.ManipulationRecord) []KindAggregateRow {
	byKind := make(map[string]*KindAggregateRow)
	sums := make(map[string]int64)

	for _, r := range records {
		row := byKind[r.Kind]
		if row == nil {
			row = &KindAggregateRow{Kind: r.Kind}
			byKind[r.Kind] = row
		}
		row.Count++
		sums[r.Kind] += r.ImpactBps
		if r.ImpactBps > row.MaxImpactBps {
			row.MaxImpactBps = r.ImpactBps
		}
		if r.ImpactBps >= g.criticalBps {
			row.CriticalCount++
		}
	}

	rows := make([]KindAggregateRow, 0, len(byKind))
	for kind, row := range byKind {
		row.MeanImpactBps = sums[kind] / int64(row.Count)
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Kind < rows[j].Kind
	})

	return rows
}

// criticalEvents lists records at or above the critical threshold.
func (g *Generator) criticalEvents(records []*domain.ManipulationRecord) []CriticalEventRow {
	var rows []CriticalEventRow
	for _, r := range records {
		if r.ImpactBps < g.criticalBps {
			continue
		}
		rows = append(rows, CriticalEventRow{
			AttackID:    r.AttackID,
			Seq:         r.Seq,
			Kind:        r.Kind,
			TargetAsset: r.TargetAsset,
			ImpactBps:   r.ImpactBps,
			Block:       r.Block,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AttackID != rows[j].AttackID {
			return rows[i].AttackID < rows[j].AttackID
		}
		return rows[i].Seq < rows[j].Seq
	})

	return rows
}
