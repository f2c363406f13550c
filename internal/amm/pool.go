// Package amm implements a deterministic constant-product liquidity pool.
// All amounts are big integers in base units; spot prices are 1e18-scaled.
// Division always floors, matching the conservative-output semantics of
// on-chain constant-product implementations.
package amm

import "math/big"

// DefaultFeeBps is the standard 0.3% swap fee.
const DefaultFeeBps = 30

var (
	bpsDenominator = big.NewInt(10_000)
	// Wad is the 1e18 fixed-point scaling base used for spot prices.
	Wad = mustBigInt("1000000000000000000")
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Direction selects which side of the pair is the swap input.
type Direction int

const (
	// AToB swaps asset A into asset B.
	AToB Direction = iota
	// BToA swaps asset B into asset A.
	BToA
)

// Pool is a constant-product pool over an ordered asset pair. The product
// reserveA*reserveB never decreases across a valid swap and strictly
// increases while the fee is nonzero.
type Pool struct {
	AssetA   string
	AssetB   string
	ReserveA *big.Int
	ReserveB *big.Int
	FeeBps   uint64
}

// NewPool creates a pool with the given initial reserves.
func NewPool(assetA, assetB string, reserveA, reserveB *big.Int, feeBps uint64) (*Pool, error) {
	if reserveA == nil || reserveB == nil || reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if feeBps >= 10_000 {
		return nil, ErrInvalidFee
	}
	return &Pool{
		AssetA:   assetA,
		AssetB:   assetB,
		ReserveA: new(big.Int).Set(reserveA),
		ReserveB: new(big.Int).Set(reserveB),
		FeeBps:   feeBps,
	}, nil
}

// Quote computes the constant-product output for amountIn against the given
// reserves:
//
//	amountOut = amountIn*(10000-feeBps)*reserveOut / (reserveIn*10000 + amountIn*(10000-feeBps))
//
// Intermediates are arbitrary-precision, so the numerator product cannot
// wrap; the division floors.
func Quote(amountIn, reserveIn, reserveOut *big.Int, feeBps uint64) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if feeBps >= 10_000 {
		return nil, ErrInvalidFee
	}

	feeMultiplier := big.NewInt(int64(10_000 - feeBps))
	amountInWithFee := new(big.Int).Mul(amountIn, feeMultiplier)

	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, bpsDenominator)
	denominator.Add(denominator, amountInWithFee)

	return numerator.Quo(numerator, denominator), nil
}

// reserves returns (in, out) for the direction.
func (p *Pool) reserves(dir Direction) (*big.Int, *big.Int) {
	if dir == AToB {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// QuoteOut quotes a swap against the current reserves without mutating them.
func (p *Pool) QuoteOut(amountIn *big.Int, dir Direction) (*big.Int, error) {
	reserveIn, reserveOut := p.reserves(dir)
	return Quote(amountIn, reserveIn, reserveOut, p.FeeBps)
}

// Swap applies amountIn to the pool and returns amountOut. Fails with
// ErrInsufficientLiquidity when the output would drain the outbound reserve
// or when amountIn is zero; on failure the reserves are untouched.
func (p *Pool) Swap(amountIn *big.Int, dir Direction) (*big.Int, error) {
	reserveIn, reserveOut := p.reserves(dir)

	amountOut, err := Quote(amountIn, reserveIn, reserveOut, p.FeeBps)
	if err != nil {
		return nil, err
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}

	reserveIn.Add(reserveIn, amountIn)
	reserveOut.Sub(reserveOut, amountOut)
	return amountOut, nil
}

// SpotPrice returns reserveOut/reserveIn for the direction, wad-scaled.
func (p *Pool) SpotPrice(dir Direction) (*big.Int, error) {
	reserveIn, reserveOut := p.reserves(dir)
	if reserveIn.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	price := new(big.Int).Mul(reserveOut, Wad)
	return price.Quo(price, reserveIn), nil
}

// K returns the current constant-product invariant reserveA*reserveB.
func (p *Pool) K() *big.Int {
	return new(big.Int).Mul(p.ReserveA, p.ReserveB)
}

// Snapshot captures the pool state for later rollback.
func (p *Pool) Snapshot() *Pool {
	return &Pool{
		AssetA:   p.AssetA,
		AssetB:   p.AssetB,
		ReserveA: new(big.Int).Set(p.ReserveA),
		ReserveB: new(big.Int).Set(p.ReserveB),
		FeeBps:   p.FeeBps,
	}
}

// Restore resets the pool to a previously captured snapshot.
func (p *Pool) Restore(snap *Pool) {
	p.AssetA = snap.AssetA
	p.AssetB = snap.AssetB
	p.ReserveA = new(big.Int).Set(snap.ReserveA)
	p.ReserveB = new(big.Int).Set(snap.ReserveB)
	p.FeeBps = snap.FeeBps
}

// Equal reports whether both pools hold identical state.
func (p *Pool) Equal(other *Pool) bool {
	return p.AssetA == other.AssetA &&
		p.AssetB == other.AssetB &&
		p.ReserveA.Cmp(other.ReserveA) == 0 &&
		p.ReserveB.Cmp(other.ReserveB) == 0 &&
		p.FeeBps == other.FeeBps
}
