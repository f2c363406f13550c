// Package reporting aggregates stored attack results and manipulation
// records into a report rendered as Markdown or CSV.
package reporting

import "time"

// Report is the aggregated view over all stored attacks.
type Report struct {
	// Metadata
	GeneratedAt          time.Time
	ScenarioCount        int
	CriticalThresholdBps int64

	Summary AttackSummary

	// Per-kind impact aggregates (sorted by kind)
	KindAggregates []KindAggregateRow

	// Records whose impact crossed the critical threshold
	// (sorted by attack_id, seq)
	CriticalEvents []CriticalEventRow

	// One row per attack (sorted by created_at, attack_id)
	Attacks []AttackRow
}

// AttackSummary counts stored attacks by outcome.
type AttackSummary struct {
	TotalAttacks          int
	Reported              int
	Reverted              int
	LiquidationsTriggered int
	TotalRecords          int
	TotalProfit           string // summed attacker profit, wad decimal string
	DateRangeStart        int64  // Unix ms
	DateRangeEnd          int64  // Unix ms
}

// KindAggregateRow aggregates impact per manipulation kind.
type KindAggregateRow struct {
	Kind          string
	Count         int
	MeanImpactBps int64
	MaxImpactBps  int64
	CriticalCount int // records at or above the critical threshold
}

// CriticalEventRow flags one manipulation record whose impact crossed the
// critical threshold.
type CriticalEventRow struct {
	AttackID    string
	Seq         int
	Kind        string
	TargetAsset string
	ImpactBps   int64
	Block       uint64
}

// AttackRow is one attack result flattened for tabular output. Big integers
// are carried as decimal strings.
type AttackRow struct {
	AttackID            string
	ScenarioID          string
	Status              string
	TriggersLiquidation bool
	MaxRepayable        string
	SeizeTokens         string
	Profit              string
	RecordCount         int
	StartBlock          uint64
	EndBlock            uint64
	CreatedAt           int64
}
