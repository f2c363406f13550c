// Package lending models a leveraged borrow position and its solvency
// accounting. Balances are big integers in base units, prices are 1e18-scaled
// USD values, and risk parameters are expressed in basis points for
// deterministic integer arithmetic.
package lending

import "math/big"

var (
	bpsDenominator = big.NewInt(10_000)
	// Wad is the 1e18 fixed-point base shared with the pool model.
	Wad = mustBigInt("1000000000000000000")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Position holds collateral and borrow balances with the risk parameters
// needed to value them. It is mutated only through explicit deposit/borrow
// mutators; the manipulation engine reads it, never writes it.
type Position struct {
	Collateral          map[string]*big.Int // asset -> balance (base units)
	Borrows             map[string]*big.Int // asset -> balance (base units)
	Prices              map[string]*big.Int // asset -> wad USD price
	CollateralFactorBps map[string]uint64   // asset -> risk weight, 0..10000
	ExchangeRate        map[string]*big.Int // asset -> wad receipt-to-underlying rate

	CloseFactorBps          uint64 // fraction of one borrow liquidatable per call
	LiquidationIncentiveBps uint64 // seize bonus multiplier, >10000
}

// Config carries construction parameters for a Position.
type Config struct {
	Collateral          map[string]*big.Int
	Borrows             map[string]*big.Int
	Prices              map[string]*big.Int
	CollateralFactorBps map[string]uint64
	ExchangeRate        map[string]*big.Int // optional, defaults to 1e18

	CloseFactorBps          uint64
	LiquidationIncentiveBps uint64
}

// NewPosition validates the configuration and builds a Position.
// Configuration errors are fatal at setup time: a missing or zero price feed
// for a held asset, a zero collateral-factor sum, a close factor above 100%
// or an incentive at or below 1.0 all reject construction.
func NewPosition(cfg Config) (*Position, error) {
	if cfg.CloseFactorBps == 0 || cfg.CloseFactorBps > 10_000 {
		return nil, ErrInvalidConfig
	}
	if cfg.LiquidationIncentiveBps <= 10_000 {
		return nil, ErrInvalidConfig
	}

	p := &Position{
		Collateral:              make(map[string]*big.Int),
		Borrows:                 make(map[string]*big.Int),
		Prices:                  make(map[string]*big.Int),
		CollateralFactorBps:     make(map[string]uint64),
		ExchangeRate:            make(map[string]*big.Int),
		CloseFactorBps:          cfg.CloseFactorBps,
		LiquidationIncentiveBps: cfg.LiquidationIncentiveBps,
	}

	var factorSum uint64
	for asset, bal := range cfg.Collateral {
		if bal == nil || bal.Sign() < 0 {
			return nil, ErrInvalidConfig
		}
		p.Collateral[asset] = new(big.Int).Set(bal)
		factor := cfg.CollateralFactorBps[asset]
		if factor > 10_000 {
			return nil, ErrInvalidConfig
		}
		p.CollateralFactorBps[asset] = factor
		factorSum += factor
	}
	if len(cfg.Collateral) > 0 && factorSum == 0 {
		return nil, ErrInvalidConfig
	}

	for asset, bal := range cfg.Borrows {
		if bal == nil || bal.Sign() < 0 {
			return nil, ErrInvalidConfig
		}
		p.Borrows[asset] = new(big.Int).Set(bal)
	}

	for asset, price := range cfg.Prices {
		if price == nil || price.Sign() < 0 {
			return nil, ErrInvalidConfig
		}
		p.Prices[asset] = new(big.Int).Set(price)
	}

	// Every held or borrowed asset needs a live price feed.
	for asset := range p.Collateral {
		if price, ok := p.Prices[asset]; !ok || price.Sign() == 0 {
			return nil, ErrPriceUnavailable
		}
	}
	for asset := range p.Borrows {
		if price, ok := p.Prices[asset]; !ok || price.Sign() == 0 {
			return nil, ErrPriceUnavailable
		}
	}

	for asset, rate := range cfg.ExchangeRate {
		if rate == nil || rate.Sign() <= 0 {
			return nil, ErrInvalidConfig
		}
		p.ExchangeRate[asset] = new(big.Int).Set(rate)
	}

	return p, nil
}

// exchangeRate returns the receipt-to-underlying rate, 1e18 by default.
func (p *Position) exchangeRate(asset string) *big.Int {
	if rate, ok := p.ExchangeRate[asset]; ok {
		return rate
	}
	return Wad
}

// SetPrice updates the tracked price for an asset. The liquidation evaluator
// uses this on a cloned position to reprice after manipulation.
func (p *Position) SetPrice(asset string, price *big.Int) {
	p.Prices[asset] = new(big.Int).Set(price)
}

// valueOf returns balance*price scaled back to wad USD, floored.
func valueOf(balance, price *big.Int) *big.Int {
	v := new(big.Int).Mul(balance, price)
	return v.Quo(v, Wad)
}

// CollateralValue is the risk-weighted wad USD value of all collateral.
func (p *Position) CollateralValue() *big.Int {
	total := big.NewInt(0)
	for asset, bal := range p.Collateral {
		v := valueOf(bal, p.Prices[asset])
		v.Mul(v, new(big.Int).SetUint64(p.CollateralFactorBps[asset]))
		v.Quo(v, bpsDenominator)
		total.Add(total, v)
	}
	return total
}

// BorrowValue is the unweighted wad USD value of all borrows.
func (p *Position) BorrowValue() *big.Int {
	total := big.NewInt(0)
	for asset, bal := range p.Borrows {
		total.Add(total, valueOf(bal, p.Prices[asset]))
	}
	return total
}

// AccountLiquidity returns (liquidity, shortfall): how far the position sits
// above or below the solvency line. At most one of the two is nonzero.
func (p *Position) AccountLiquidity() (*big.Int, *big.Int) {
	cv := p.CollateralValue()
	bv := p.BorrowValue()

	diff := new(big.Int).Sub(cv, bv)
	if diff.Sign() >= 0 {
		return diff, big.NewInt(0)
	}
	return big.NewInt(0), diff.Neg(diff)
}

// HealthFactor returns collateralValue/borrowValue wad-scaled. The second
// return is false when the position has no borrows, where the ratio is
// undefined (effectively infinite).
func (p *Position) HealthFactor() (*big.Int, bool) {
	bv := p.BorrowValue()
	if bv.Sign() == 0 {
		return nil, false
	}
	hf := new(big.Int).Mul(p.CollateralValue(), Wad)
	return hf.Quo(hf, bv), true
}

// IsLiquidatable reports whether the position carries a shortfall.
func (p *Position) IsLiquidatable() bool {
	_, shortfall := p.AccountLiquidity()
	return shortfall.Sign() > 0
}

// MaxLiquidatable returns the borrow amount of the asset repayable in one
// liquidation call: borrowBalance * closeFactor.
func (p *Position) MaxLiquidatable(asset string) *big.Int {
	borrow, ok := p.Borrows[asset]
	if !ok {
		return big.NewInt(0)
	}
	max := new(big.Int).Mul(borrow, new(big.Int).SetUint64(p.CloseFactorBps))
	return max.Quo(max, bpsDenominator)
}

// SeizeAmount converts a repay amount of the borrowed asset into the number
// of collateral tokens seized, applying the liquidation incentive:
//
//	seizeValueUSD = repayAmount * price[borrowed] * incentive
//	seizeTokens   = seizeValueUSD / (price[collateral] * exchangeRate[collateral])
//
// A zero or missing price on either leg is ErrPriceUnavailable, never a
// silent zero.
func (p *Position) SeizeAmount(repayAmount *big.Int, borrowedAsset, collateralAsset string) (*big.Int, error) {
	if repayAmount == nil || repayAmount.Sign() < 0 {
		return nil, ErrInvalidConfig
	}

	priceBorrowed, ok := p.Prices[borrowedAsset]
	if !ok || priceBorrowed.Sign() == 0 {
		return nil, ErrPriceUnavailable
	}
	priceCollateral, ok := p.Prices[collateralAsset]
	if !ok || priceCollateral.Sign() == 0 {
		return nil, ErrPriceUnavailable
	}

	// numerator = repay * priceBorrowed * incentiveBps * 1e18
	num := new(big.Int).Mul(repayAmount, priceBorrowed)
	num.Mul(num, new(big.Int).SetUint64(p.LiquidationIncentiveBps))
	num.Mul(num, Wad)

	// denominator = priceCollateral * exchangeRate * 10000
	den := new(big.Int).Mul(priceCollateral, p.exchangeRate(collateralAsset))
	den.Mul(den, bpsDenominator)

	return num.Quo(num, den), nil
}

// Snapshot deep-copies the position for later rollback.
func (p *Position) Snapshot() *Position {
	snap := &Position{
		Collateral:              copyBalances(p.Collateral),
		Borrows:                 copyBalances(p.Borrows),
		Prices:                  copyBalances(p.Prices),
		CollateralFactorBps:     make(map[string]uint64, len(p.CollateralFactorBps)),
		ExchangeRate:            copyBalances(p.ExchangeRate),
		CloseFactorBps:          p.CloseFactorBps,
		LiquidationIncentiveBps: p.LiquidationIncentiveBps,
	}
	for asset, factor := range p.CollateralFactorBps {
		snap.CollateralFactorBps[asset] = factor
	}
	return snap
}

// Restore resets the position to a previously captured snapshot.
func (p *Position) Restore(snap *Position) {
	p.Collateral = copyBalances(snap.Collateral)
	p.Borrows = copyBalances(snap.Borrows)
	p.Prices = copyBalances(snap.Prices)
	p.ExchangeRate = copyBalances(snap.ExchangeRate)
	p.CollateralFactorBps = make(map[string]uint64, len(snap.CollateralFactorBps))
	for asset, factor := range snap.CollateralFactorBps {
		p.CollateralFactorBps[asset] = factor
	}
	p.CloseFactorBps = snap.CloseFactorBps
	p.LiquidationIncentiveBps = snap.LiquidationIncentiveBps
}

// Equal reports whether both positions hold identical state.
func (p *Position) Equal(other *Position) bool {
	return balancesEqual(p.Collateral, other.Collateral) &&
		balancesEqual(p.Borrows, other.Borrows) &&
		balancesEqual(p.Prices, other.Prices) &&
		balancesEqual(p.ExchangeRate, other.ExchangeRate) &&
		factorsEqual(p.CollateralFactorBps, other.CollateralFactorBps) &&
		p.CloseFactorBps == other.CloseFactorBps &&
		p.LiquidationIncentiveBps == other.LiquidationIncentiveBps
}

func copyBalances(src map[string]*big.Int) map[string]*big.Int {
	dst := make(map[string]*big.Int, len(src))
	for asset, amount := range src {
		dst[asset] = new(big.Int).Set(amount)
	}
	return dst
}

func balancesEqual(a, b map[string]*big.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for asset, amount := range a {
		other, ok := b[asset]
		if !ok || amount.Cmp(other) != 0 {
			return false
		}
	}
	return true
}

func factorsEqual(a, b map[string]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for asset, factor := range a {
		if b[asset] != factor {
			return false
		}
	}
	return true
}
