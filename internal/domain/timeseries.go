package domain

import "math/big"

// ImpactPoint is the analytical projection of a manipulation record for the
// ClickHouse impact timeseries. Prices are downsampled from wad integers to
// float64: the timeseries serves aggregation queries, not settlement, so the
// precision loss is acceptable there and nowhere else.
type ImpactPoint struct {
	AttackID         string
	Seq              int
	Kind             string
	TargetAsset      string
	TimestampMs      int64
	Block            uint64
	OriginalPrice    float64
	ManipulatedPrice float64
	ImpactBps        int64
}

// ImpactPointFromRecord projects a manipulation record onto the timeseries
// schema.
func ImpactPointFromRecord(r *ManipulationRecord) *ImpactPoint {
	return &ImpactPoint{
		AttackID:         r.AttackID,
		Seq:              r.Seq,
		Kind:             r.Kind,
		TargetAsset:      r.TargetAsset,
		TimestampMs:      r.Timestamp * 1000,
		Block:            r.Block,
		OriginalPrice:    wadFloat(r.OriginalPrice),
		ManipulatedPrice: wadFloat(r.ManipulatedPrice),
		ImpactBps:        r.ImpactBps,
	}
}

var wadFloatScale = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// wadFloat converts a wad-scaled integer to its float64 value.
func wadFloat(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	f := new(big.Float).SetInt(v)
	f.Quo(f, wadFloatScale)
	out, _ := f.Float64()
	return out
}
