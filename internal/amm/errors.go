package amm

import "errors"

// Pool errors.
var (
	// ErrInsufficientLiquidity is returned when a swap would drain the
	// outbound reserve, when the input amount is zero, or when a pool side
	// holds no liquidity.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// ErrInvalidFee is returned when the fee is not below 10000 bps.
	ErrInvalidFee = errors.New("invalid fee: must be below 10000 bps")
)
