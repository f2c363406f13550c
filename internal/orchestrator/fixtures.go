package orchestrator

import (
	"math/big"

	"amm-attack-lab/internal/amm"
	"amm-attack-lab/internal/chain"
	"amm-attack-lab/internal/lending"
)

// Environment is one isolated attack sandbox: a pool, a logical ledger and a
// borrow position. Every attack run gets a fresh environment so scenarios
// never observe each other's state.
type Environment struct {
	Pool     *amm.Pool
	Ledger   *chain.SimLedger
	Position *lending.Position
}

// Default fixture parameters: a 1000 ETH / 2,000,000 USDC pool (spot 2000)
// and a position holding 10 ETH against a 10,000 USDC borrow, health
// factor 1.5 at the pool's spot price.
const (
	fixtureStartBlock = 100
	fixtureStartTime  = 1_700_000_000
)

func wholeTokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), amm.Wad)
}

// NewDefaultEnvironment builds the standard ETH/USDC fixture. The attacker
// account is funded with 1,000,000 USDC for sandwich capital.
func NewDefaultEnvironment(attacker string) (*Environment, error) {
	pool, err := amm.NewPool("ETH", "USDC", wholeTokens(1_000), wholeTokens(2_000_000), amm.DefaultFeeBps)
	if err != nil {
		return nil, err
	}

	ledger := chain.NewSimLedger(fixtureStartBlock, fixtureStartTime)
	ledger.SetBalance("USDC", attacker, wholeTokens(1_000_000))

	position, err := lending.NewPosition(lending.Config{
		Collateral:              map[string]*big.Int{"ETH": wholeTokens(10)},
		Borrows:                 map[string]*big.Int{"USDC": wholeTokens(10_000)},
		Prices:                  map[string]*big.Int{"ETH": wholeTokens(2_000), "USDC": wholeTokens(1)},
		CollateralFactorBps:     map[string]uint64{"ETH": 7_500},
		CloseFactorBps:          5_000,
		LiquidationIncentiveBps: 10_800,
	})
	if err != nil {
		return nil, err
	}

	return &Environment{Pool: pool, Ledger: ledger, Position: position}, nil
}
