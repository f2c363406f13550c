// Package manipulation orchestrates price-manipulation steps against a
// constant-product pool and records their measured impact.
//
// Impact is measured with the reference-trade technique: a trade of one-tenth
// the manipulation size is quoted before and after the large swap, and the
// relative drop in its output is reported in basis points. This approximates
// marginal price impact and is intentionally conservative for small reference
// sizes; it is not the instantaneous marginal price.
package manipulation

import (
	"log"
	"math/big"
	"time"

	"amm-attack-lab/internal/amm"
	"amm-attack-lab/internal/chain"
	"amm-attack-lab/internal/domain"
)

var bpsDenominator = big.NewInt(10_000)

// Engine executes manipulation steps against one pool. It owns the
// append-only record log for the current attack; Reset is the only way to
// clear it. The engine composes over explicit Pool, Ledger and Clock
// references, it holds no ambient state.
type Engine struct {
	pool     *amm.Pool
	ledger   chain.Ledger
	attackID string
	attacker string
	logger   *log.Logger
	records  []*domain.ManipulationRecord
}

// Options contains configuration for creating an Engine.
type Options struct {
	Pool     *amm.Pool
	Ledger   chain.Ledger
	AttackID string
	Attacker string      // ledger account funding sandwich runs
	Logger   *log.Logger // optional, defaults to the standard logger
}

// NewEngine creates a manipulation engine bound to a pool and ledger.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		pool:     opts.Pool,
		ledger:   opts.Ledger,
		attackID: opts.AttackID,
		attacker: opts.Attacker,
		logger:   logger,
	}
}

// Pool returns the pool the engine operates on.
func (e *Engine) Pool() *amm.Pool {
	return e.pool
}

// Ledger returns the ledger clock the engine stamps records with.
func (e *Engine) Ledger() chain.Ledger {
	return e.ledger
}

// Records returns a copy of the manipulation log in append order.
func (e *Engine) Records() []*domain.ManipulationRecord {
	out := make([]*domain.ManipulationRecord, len(e.records))
	for i, r := range e.records {
		out[i] = r.Clone()
	}
	return out
}

// Reset clears the record log. It is the only mutator of the log besides the
// manipulation operations themselves.
func (e *Engine) Reset() {
	e.records = nil
}

// targetDirection returns the swap direction that buys the asset, or false
// when the asset is not the pool's target side.
func (e *Engine) targetAsset(asset string) bool {
	return asset == e.pool.AssetA
}

// referenceQuote quotes a reference trade of size/10 in the given direction.
// A failed quote degrades to nil with a logged warning instead of failing
// the manipulation; the caller then reports zero impact.
func (e *Engine) referenceQuote(size *big.Int, dir amm.Direction) *big.Int {
	reference := new(big.Int).Quo(size, big.NewInt(10))
	out, err := e.pool.QuoteOut(reference, dir)
	if err != nil {
		e.logger.Printf("WARN: reference quote failed, reporting zero impact: %v", err)
		return nil
	}
	return out
}

// impactBps compares reference-trade outputs before and after a swap:
// (quoteBefore - quoteAfter) * 10000 / quoteBefore.
func impactBps(before, after *big.Int) int64 {
	if before == nil || after == nil || before.Sign() == 0 {
		return 0
	}
	diff := new(big.Int).Sub(before, after)
	diff.Mul(diff, bpsDenominator)
	diff.Quo(diff, before)
	return diff.Int64()
}

// appendRecord stamps and appends exactly one record for a completed step.
func (e *Engine) appendRecord(kind, asset string, original, manipulated *big.Int, impact int64) *domain.ManipulationRecord {
	record := &domain.ManipulationRecord{
		AttackID:         e.attackID,
		Seq:              len(e.records),
		Kind:             kind,
		TargetAsset:      asset,
		OriginalPrice:    original,
		ManipulatedPrice: manipulated,
		ImpactBps:        impact,
		Block:            e.ledger.CurrentBlock(),
		Timestamp:        e.ledger.CurrentTime(),
		CreatedAt:        time.Now().UnixMilli(),
	}
	e.records = append(e.records, record)
	return record
}

// Pump swaps amountIn of the quote asset into the target asset, raising its
// price, and appends one record.
func (e *Engine) Pump(asset string, amountIn *big.Int) (*domain.ManipulationRecord, error) {
	if !e.targetAsset(asset) {
		return nil, ErrUnknownAsset
	}

	original, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		return nil, err
	}
	refBefore := e.referenceQuote(amountIn, amm.BToA)

	if _, err := e.pool.Swap(amountIn, amm.BToA); err != nil {
		return nil, err
	}

	refAfter := e.referenceQuote(amountIn, amm.BToA)
	manipulated, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		return nil, err
	}

	return e.appendRecord(domain.ManipulationPump, asset, original, manipulated, impactBps(refBefore, refAfter)), nil
}

// Dump swaps amountIn of the target asset back into the quote asset,
// depressing its price, and appends one record.
func (e *Engine) Dump(asset string, amountIn *big.Int) (*domain.ManipulationRecord, error) {
	if !e.targetAsset(asset) {
		return nil, ErrUnknownAsset
	}

	original, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		return nil, err
	}
	refBefore := e.referenceQuote(amountIn, amm.AToB)

	if _, err := e.pool.Swap(amountIn, amm.AToB); err != nil {
		return nil, err
	}

	refAfter := e.referenceQuote(amountIn, amm.AToB)
	manipulated, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		return nil, err
	}

	return e.appendRecord(domain.ManipulationDump, asset, original, manipulated, impactBps(refBefore, refAfter)), nil
}

// Sandwich front-runs a victim trade with half the attacker's capital,
// lets the victim's independent swap execute, then back-runs by selling the
// entire target-asset balance acquired in the front-run. The three swaps are
// one ordered, non-interleavable sequence: any failure restores the pool and
// the attacker's balances to the pre-sandwich state.
//
// Profit is the attacker's quote-asset balance after minus before. One
// record is appended for the whole sequence.
func (e *Engine) Sandwich(victimAmount, attackerCapital *big.Int) (*domain.ManipulationRecord, *big.Int, error) {
	quoteAsset := e.pool.AssetB
	targetAsset := e.pool.AssetA

	balanceBefore := e.ledger.Balance(quoteAsset, e.attacker)
	if attackerCapital == nil || attackerCapital.Sign() <= 0 || balanceBefore.Cmp(attackerCapital) < 0 {
		return nil, nil, ErrInsufficientCapital
	}

	poolSnap := e.pool.Snapshot()
	restore := func() {
		e.pool.Restore(poolSnap)
		e.ledger.SetBalance(quoteAsset, e.attacker, balanceBefore)
		e.ledger.SetBalance(targetAsset, e.attacker, big.NewInt(0))
	}

	original, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		return nil, nil, err
	}
	refBefore := e.referenceQuote(victimAmount, amm.BToA)

	// Front-run: half the capital buys the target ahead of the victim.
	frontRun := new(big.Int).Quo(attackerCapital, big.NewInt(2))
	acquired, err := e.pool.Swap(frontRun, amm.BToA)
	if err != nil {
		restore()
		return nil, nil, err
	}
	e.ledger.SetBalance(quoteAsset, e.attacker, new(big.Int).Sub(balanceBefore, frontRun))
	e.ledger.SetBalance(targetAsset, e.attacker, acquired)

	// Victim: an independent actor's swap, fixed between the attacker legs.
	if _, err := e.pool.Swap(victimAmount, amm.BToA); err != nil {
		restore()
		return nil, nil, err
	}

	// Back-run: sell everything acquired back into the quote asset.
	returned, err := e.pool.Swap(acquired, amm.AToB)
	if err != nil {
		restore()
		return nil, nil, err
	}
	balanceAfter := new(big.Int).Sub(balanceBefore, frontRun)
	balanceAfter.Add(balanceAfter, returned)
	e.ledger.SetBalance(quoteAsset, e.attacker, balanceAfter)
	e.ledger.SetBalance(targetAsset, e.attacker, big.NewInt(0))

	refAfter := e.referenceQuote(victimAmount, amm.BToA)
	manipulated, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		restore()
		return nil, nil, err
	}

	profit := new(big.Int).Sub(balanceAfter, balanceBefore)
	record := e.appendRecord(domain.ManipulationSandwich, targetAsset, original, manipulated, impactBps(refBefore, refAfter))
	return record, profit, nil
}

// DelayExploit captures the oracle price, pumps the asset, then advances the
// logical clock by delaySeconds without refreshing the oracle. The record's
// ImpactBps holds the market/stale-oracle discrepancy:
// |marketPrice - staleOraclePrice| * 10000 / staleOraclePrice.
func (e *Engine) DelayExploit(asset string, pumpAmount *big.Int, delaySeconds int64) (*domain.ManipulationRecord, error) {
	if !e.targetAsset(asset) {
		return nil, ErrUnknownAsset
	}

	staleOracle, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		return nil, err
	}

	if _, err := e.pool.Swap(pumpAmount, amm.BToA); err != nil {
		return nil, err
	}

	e.ledger.AdvanceTime(delaySeconds)

	market, err := e.pool.SpotPrice(amm.AToB)
	if err != nil {
		return nil, err
	}

	discrepancy := new(big.Int).Sub(market, staleOracle)
	discrepancy.Abs(discrepancy)
	discrepancy.Mul(discrepancy, bpsDenominator)
	if staleOracle.Sign() > 0 {
		discrepancy.Quo(discrepancy, staleOracle)
	} else {
		discrepancy.SetInt64(0)
	}

	return e.appendRecord(domain.ManipulationOracleDelay, asset, staleOracle, market, discrepancy.Int64()), nil
}
