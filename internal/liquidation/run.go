package liquidation

import (
	"math/big"
	"time"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/lending"
	"amm-attack-lab/internal/manipulation"
)

// State is the attack-run state machine position:
// Idle -> Manipulating -> Evaluated -> {Reverted | Reported}.
type State string

const (
	StateIdle         State = "idle"
	StateManipulating State = "manipulating"
	StateEvaluated    State = "evaluated"
	StateReverted     State = "reverted"
	StateReported     State = "reported"
)

// Step is one manipulation operation inside an attack sequence. A step may
// return a profit contribution (sandwich back-runs do); most return nil.
type Step func(engine *manipulation.Engine) (*big.Int, error)

// Run executes attack sequences atomically against one engine and position.
// Either every step commits or the pool and position are rolled back to the
// pre-sequence snapshot, matching the flash-loan invariant that the whole
// sequence lives inside one logical transaction.
type Run struct {
	engine    *manipulation.Engine
	position  *lending.Position
	evaluator *Evaluator
	state     State
}

// NewRun creates an idle attack run.
func NewRun(engine *manipulation.Engine, position *lending.Position, evaluator *Evaluator) *Run {
	return &Run{
		engine:    engine,
		position:  position,
		evaluator: evaluator,
		state:     StateIdle,
	}
}

// State returns the current state-machine position.
func (r *Run) State() State {
	return r.state
}

// Execute drives one attack through the state machine. On any step failure
// the pool and position are restored bit-identical to their pre-sequence
// snapshots and a SequenceError carrying the partial record log is returned
// alongside the reverted result. On success the post-attack state is left in
// place for inspection and the reported result carries the full log and
// verdict.
func (r *Run) Execute(attackID, scenarioID string, steps []Step) (*domain.AttackResult, error) {
	poolSnap := r.engine.Pool().Snapshot()
	positionSnap := r.position.Snapshot()
	startBlock := r.engine.Ledger().CurrentBlock()

	r.engine.Reset()
	r.state = StateManipulating

	profit := big.NewInt(0)
	for i, step := range steps {
		stepProfit, err := step(r.engine)
		if err != nil {
			partial := r.engine.Records()
			r.engine.Pool().Restore(poolSnap)
			r.position.Restore(positionSnap)
			r.engine.Reset()
			r.state = StateReverted

			result := &domain.AttackResult{
				AttackID:     attackID,
				ScenarioID:   scenarioID,
				Records:      partial,
				Status:       domain.AttackStatusReverted,
				MaxRepayable: big.NewInt(0),
				SeizeTokens:  big.NewInt(0),
				Profit:       big.NewInt(0),
				StartBlock:   startBlock,
				EndBlock:     r.engine.Ledger().CurrentBlock(),
				CreatedAt:    time.Now().UnixMilli(),
			}
			return result, &SequenceError{Step: i, Records: partial, Err: err}
		}
		if stepProfit != nil {
			profit.Add(profit, stepProfit)
		}
	}

	records := r.engine.Records()
	if len(records) == 0 {
		r.state = StateReverted
		return nil, &SequenceError{Step: 0, Err: ErrEmptySequence}
	}
	r.state = StateEvaluated

	latest := records[len(records)-1]
	result, err := r.evaluator.Evaluate(r.position, latest)
	if err != nil {
		r.engine.Pool().Restore(poolSnap)
		r.position.Restore(positionSnap)
		r.engine.Reset()
		r.state = StateReverted
		return nil, &SequenceError{Step: len(steps), Records: records, Err: err}
	}

	result.AttackID = attackID
	result.ScenarioID = scenarioID
	result.Records = records
	result.Profit = profit
	result.Status = domain.AttackStatusReported
	result.StartBlock = startBlock
	result.EndBlock = r.engine.Ledger().CurrentBlock()
	result.CreatedAt = time.Now().UnixMilli()

	r.state = StateReported
	return result, nil
}
