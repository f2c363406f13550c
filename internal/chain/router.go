package chain

import (
	"math/big"

	"amm-attack-lab/internal/amm"
)

// Router is the DEX surface the simulation consumes. QuoteOut degrades an
// unroutable or illiquid path to zero, matching conservative simulation
// semantics; callers must treat a zero quote as "unknown", not "free".
type Router interface {
	QuoteOut(amountIn *big.Int, path []string) *big.Int
	Swap(amountIn, minOut *big.Int, path []string, recipient string, deadline int64) ([]*big.Int, error)
}

// SimRouter routes over registered in-process pools.
type SimRouter struct {
	clock  Clock
	ledger Ledger // optional, credits the swap recipient when set
	pools  []*amm.Pool
}

var _ Router = (*SimRouter)(nil)

// NewSimRouter creates a router bound to the given clock.
func NewSimRouter(clock Clock, ledger Ledger) *SimRouter {
	return &SimRouter{clock: clock, ledger: ledger}
}

// RegisterPool adds a pool to the routing table.
func (r *SimRouter) RegisterPool(pool *amm.Pool) {
	r.pools = append(r.pools, pool)
}

// findPool returns the pool covering the hop and the swap direction.
func (r *SimRouter) findPool(assetIn, assetOut string) (*amm.Pool, amm.Direction, bool) {
	for _, pool := range r.pools {
		if pool.AssetA == assetIn && pool.AssetB == assetOut {
			return pool, amm.AToB, true
		}
		if pool.AssetB == assetIn && pool.AssetA == assetOut {
			return pool, amm.BToA, true
		}
	}
	return nil, 0, false
}

// QuoteOut quotes amountIn along the path. Zero is returned when no route
// exists or a hop has no liquidity.
func (r *SimRouter) QuoteOut(amountIn *big.Int, path []string) *big.Int {
	if len(path) < 2 || amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}

	amount := new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		pool, dir, ok := r.findPool(path[i], path[i+1])
		if !ok {
			return big.NewInt(0)
		}
		out, err := pool.QuoteOut(amount, dir)
		if err != nil {
			return big.NewInt(0)
		}
		amount = out
	}
	return amount
}

// Swap executes amountIn along the path, reverting every hop when the final
// output misses minOut or the deadline has passed. Returns the per-hop
// output amounts, input first, matching the router convention.
func (r *SimRouter) Swap(amountIn, minOut *big.Int, path []string, recipient string, deadline int64) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrNoRoute
	}
	if deadline > 0 && r.clock != nil && r.clock.CurrentTime() > deadline {
		return nil, ErrDeadlineExceeded
	}

	// Snapshot every hop pool so a failed swap leaves no partial mutation.
	type hop struct {
		pool *amm.Pool
		dir  amm.Direction
		snap *amm.Pool
	}
	hops := make([]hop, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		pool, dir, ok := r.findPool(path[i], path[i+1])
		if !ok {
			return nil, ErrNoRoute
		}
		hops = append(hops, hop{pool: pool, dir: dir, snap: pool.Snapshot()})
	}

	restore := func() {
		for _, h := range hops {
			h.pool.Restore(h.snap)
		}
	}

	amounts := []*big.Int{new(big.Int).Set(amountIn)}
	amount := amountIn
	for _, h := range hops {
		out, err := h.pool.Swap(amount, h.dir)
		if err != nil {
			restore()
			return nil, err
		}
		amounts = append(amounts, out)
		amount = out
	}

	if minOut != nil && amount.Cmp(minOut) < 0 {
		restore()
		return nil, ErrSlippageExceeded
	}

	if r.ledger != nil && recipient != "" {
		asset := path[len(path)-1]
		balance := r.ledger.Balance(asset, recipient)
		r.ledger.SetBalance(asset, recipient, balance.Add(balance, amount))
	}
	return amounts, nil
}
