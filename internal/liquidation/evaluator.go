// Package liquidation evaluates whether a manipulated price pushes a borrow
// position into a liquidatable state and drives attack runs through their
// state machine.
package liquidation

import (
	"math/big"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/lending"
)

// Evaluator turns a position plus the latest manipulation record into a
// liquidation verdict. The verdict always derives from the position's live
// accounting; there is no placeholder health factor anywhere.
type Evaluator struct {
	borrowedAsset   string // asset whose debt a liquidator would repay
	collateralAsset string // asset the liquidator would seize
	quoteAsset      string // asset the pool prices the target in
}

// NewEvaluator creates an evaluator for a borrow/collateral pair. quoteAsset
// names the pool's quote side so pool prices can be converted to position
// (USD) prices.
func NewEvaluator(borrowedAsset, collateralAsset, quoteAsset string) *Evaluator {
	return &Evaluator{
		borrowedAsset:   borrowedAsset,
		collateralAsset: collateralAsset,
		quoteAsset:      quoteAsset,
	}
}

// repriced returns a clone of the position with the record's manipulated
// price applied to the affected asset. The original position is never
// touched; it is read-only to the evaluator.
func (ev *Evaluator) repriced(position *lending.Position, record *domain.ManipulationRecord) *lending.Position {
	clone := position.Snapshot()

	// Pool prices are quote units per target; scale by the quote asset's
	// USD price to stay in the position's denomination.
	usdPrice := new(big.Int).Set(record.ManipulatedPrice)
	if quotePrice, ok := clone.Prices[ev.quoteAsset]; ok {
		usdPrice.Mul(usdPrice, quotePrice)
		usdPrice.Quo(usdPrice, lending.Wad)
	}
	clone.SetPrice(record.TargetAsset, usdPrice)
	return clone
}

// Evaluate recomputes account liquidity at the manipulated price and fills
// the verdict fields of an AttackResult. A position with no shortfall yields
// zero repay and seize amounts.
func (ev *Evaluator) Evaluate(position *lending.Position, record *domain.ManipulationRecord) (*domain.AttackResult, error) {
	repriced := ev.repriced(position, record)

	result := &domain.AttackResult{
		MaxRepayable: big.NewInt(0),
		SeizeTokens:  big.NewInt(0),
		Profit:       big.NewInt(0),
	}

	result.TriggersLiquidation = repriced.IsLiquidatable()
	if !result.TriggersLiquidation {
		return result, nil
	}

	result.MaxRepayable = repriced.MaxLiquidatable(ev.borrowedAsset)
	seize, err := repriced.SeizeAmount(result.MaxRepayable, ev.borrowedAsset, ev.collateralAsset)
	if err != nil {
		return nil, err
	}
	result.SeizeTokens = seize
	return result, nil
}
