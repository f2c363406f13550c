package manipulation

import "errors"

// Engine errors.
var (
	// ErrUnknownAsset is returned when an operation targets an asset that
	// is not the pool's target side.
	ErrUnknownAsset = errors.New("asset not traded by this pool")

	// ErrInsufficientCapital is returned when the attacker's ledger balance
	// cannot fund the requested sandwich capital.
	ErrInsufficientCapital = errors.New("attacker balance below requested capital")
)
