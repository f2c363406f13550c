package domain

import "math/big"

// ManipulationRecord captures the before/after price effect of a single
// manipulation step. Records are append-only: the engine that produced a
// record never mutates it afterwards.
// Corresponds to manipulation_records table in PostgreSQL.
type ManipulationRecord struct {
	AttackID         string   // FK to attack_results
	Seq              int      // index of the step within the attack sequence
	Kind             string   // "pump" | "dump" | "sandwich" | "oracle_delay"
	TargetAsset      string   // asset whose price was moved
	OriginalPrice    *big.Int // wad-scaled spot price before the step
	ManipulatedPrice *big.Int // wad-scaled spot price after the step
	ImpactBps        int64    // price impact in basis points (see note below)
	Block            uint64   // logical block at which the step executed
	Timestamp        int64    // logical unix time at which the step executed
	CreatedAt        int64    // record creation timestamp (ms)
}

// Manipulation kind constants
const (
	ManipulationPump        = "pump"
	ManipulationDump        = "dump"
	ManipulationSandwich    = "sandwich"
	ManipulationOracleDelay = "oracle_delay"
)

// ImpactBps is measured with the reference-trade technique: a trade of
// one-tenth the manipulation size is quoted before and after the large swap
// and the relative output drop is expressed in basis points. This is an
// approximation of marginal price impact, conservative for small reference
// sizes, not the instantaneous marginal price. For oracle_delay records the
// field holds the market/stale-oracle discrepancy instead.

// Clone returns a deep copy of the record.
func (r *ManipulationRecord) Clone() *ManipulationRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.OriginalPrice != nil {
		cp.OriginalPrice = new(big.Int).Set(r.OriginalPrice)
	}
	if r.ManipulatedPrice != nil {
		cp.ManipulatedPrice = new(big.Int).Set(r.ManipulatedPrice)
	}
	return &cp
}
