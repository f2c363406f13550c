package lending

import "errors"

// Position errors.
var (
	// ErrPriceUnavailable is returned when a valuation needs a price the
	// position does not track or tracks at zero. Callers must treat it as
	// "unknown", never as "free".
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrInvalidConfig rejects malformed risk parameters at setup time.
	ErrInvalidConfig = errors.New("invalid position configuration")
)
