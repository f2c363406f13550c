package liquidation

import (
	"errors"
	"fmt"

	"amm-attack-lab/internal/domain"
)

// ErrEmptySequence rejects an attack run with no manipulation steps.
var ErrEmptySequence = errors.New("attack sequence produced no records")

// SequenceError is the typed failure of an aborted attack sequence. The
// pool and position have already been rolled back when it is returned; the
// partial record log is attached for diagnostics only.
type SequenceError struct {
	Step    int
	Records []*domain.ManipulationRecord
	Err     error
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("attack sequence aborted at step %d (%d records discarded): %v",
		e.Step, len(e.Records), e.Err)
}

func (e *SequenceError) Unwrap() error {
	return e.Err
}
