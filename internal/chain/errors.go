package chain

import (
	"errors"
	"fmt"

	"amm-attack-lab/internal/domain"
)

// Router errors.
var (
	// ErrNoRoute is returned when no registered pool covers a path hop.
	ErrNoRoute = errors.New("no route for path")

	// ErrDeadlineExceeded is returned when the logical clock passed the
	// swap deadline.
	ErrDeadlineExceeded = errors.New("swap deadline exceeded")

	// ErrSlippageExceeded is returned when the final output misses minOut.
	ErrSlippageExceeded = errors.New("output below minimum")
)

// ProtocolRejectionError surfaces a nonzero lending-protocol result code
// with its decoded reason string.
type ProtocolRejectionError struct {
	Code domain.ResultCode
}

func (e *ProtocolRejectionError) Error() string {
	return fmt.Sprintf("protocol rejection: %s (code %d)", e.Code, uint16(e.Code))
}
