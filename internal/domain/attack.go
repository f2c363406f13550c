package domain

import "math/big"

// AttackResult is the outcome of one orchestrated attack run. Produced once
// per run and never mutated after creation.
// Corresponds to attack_results table in PostgreSQL.
type AttackResult struct {
	AttackID   string // deterministic hash (idhash.ComputeAttackID)
	ScenarioID string // scenario that produced this run

	// Records is the ordered manipulation log of the run. For reverted runs
	// it holds the partial log up to the failed step, for diagnostics only.
	Records []*ManipulationRecord

	// Verdict
	TriggersLiquidation bool     // position became liquidatable at post-attack prices
	MaxRepayable        *big.Int // borrow units repayable in one liquidation call
	SeizeTokens         *big.Int // collateral units seized for MaxRepayable
	Profit              *big.Int // attacker quote-asset profit (sandwich runs)

	// Run metadata
	Status     string // "reported" | "reverted"
	StartBlock uint64 // logical block before the first step
	EndBlock   uint64 // logical block after the last step
	CreatedAt  int64  // creation timestamp (ms)
}

// Attack run status constants. A run either reports a result or is fully
// rolled back; there is no partially-applied terminal state.
const (
	AttackStatusReported = "reported"
	AttackStatusReverted = "reverted"
)

// Clone returns a deep copy of the result, records included.
func (a *AttackResult) Clone() *AttackResult {
	if a == nil {
		return nil
	}
	cp := *a
	if a.Records != nil {
		cp.Records = make([]*ManipulationRecord, len(a.Records))
		for i, r := range a.Records {
			cp.Records[i] = r.Clone()
		}
	}
	if a.MaxRepayable != nil {
		cp.MaxRepayable = new(big.Int).Set(a.MaxRepayable)
	}
	if a.SeizeTokens != nil {
		cp.SeizeTokens = new(big.Int).Set(a.SeizeTokens)
	}
	if a.Profit != nil {
		cp.Profit = new(big.Int).Set(a.Profit)
	}
	return &cp
}
