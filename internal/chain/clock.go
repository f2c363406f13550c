// Package chain provides the capability interfaces the simulation core
// consumes from its environment: a logical ledger clock, a lending-protocol
// adapter, and a DEX router. In-process Sim* implementations back them for
// deterministic runs.
package chain

import (
	"math/big"
	"sync"
)

// Clock is the logical block/time source. Time never advances implicitly;
// the only mutators are AdvanceTime and AdvanceBlocks. Single writer, many
// readers.
type Clock interface {
	CurrentBlock() uint64
	CurrentTime() int64
	AdvanceTime(seconds int64)
	AdvanceBlocks(n uint64)
}

// Ledger extends Clock with simulated account balances.
type Ledger interface {
	Clock
	SetBalance(asset, account string, amount *big.Int)
	Balance(asset, account string) *big.Int
}

// SimLedger is the in-process Ledger. Balances are keyed by asset then
// account and defensively copied on both read and write.
type SimLedger struct {
	mu       sync.RWMutex
	block    uint64
	time     int64
	balances map[string]map[string]*big.Int
}

// NewSimLedger creates a ledger starting at the given block and unix time.
func NewSimLedger(startBlock uint64, startTime int64) *SimLedger {
	return &SimLedger{
		block:    startBlock,
		time:     startTime,
		balances: make(map[string]map[string]*big.Int),
	}
}

// CurrentBlock returns the logical block number.
func (l *SimLedger) CurrentBlock() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.block
}

// CurrentTime returns the logical unix time.
func (l *SimLedger) CurrentTime() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.time
}

// AdvanceTime moves the logical clock forward by seconds.
func (l *SimLedger) AdvanceTime(seconds int64) {
	if seconds <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.time += seconds
}

// AdvanceBlocks moves the logical block height forward by n.
func (l *SimLedger) AdvanceBlocks(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.block += n
}

// SetBalance overwrites an account balance for an asset.
func (l *SimLedger) SetBalance(asset, account string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts, ok := l.balances[asset]
	if !ok {
		accounts = make(map[string]*big.Int)
		l.balances[asset] = accounts
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	accounts[account] = new(big.Int).Set(amount)
}

// Balance returns the account balance for an asset, zero when unset.
func (l *SimLedger) Balance(asset, account string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if accounts, ok := l.balances[asset]; ok {
		if amount, ok := accounts[account]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return big.NewInt(0)
}
