// Package orchestrator provides E2E attack pipeline orchestration.
// It coordinates: environment setup → attack runs → persistence → reporting.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/idhash"
	"amm-attack-lab/internal/liquidation"
	"amm-attack-lab/internal/manipulation"
	"amm-attack-lab/internal/observability"
	"amm-attack-lab/internal/storage"
)

// DefaultAttacker is the ledger account funding attack runs.
const DefaultAttacker = "attacker"

// Orchestrator coordinates attack pipeline execution. Each scenario runs in
// a fresh environment; records, results and impact points are persisted
// after every run.
type Orchestrator struct {
	resultStore storage.AttackResultStore
	recordStore storage.ManipulationRecordStore
	impactStore storage.ImpactTimeseriesStore // optional

	scenarios []domain.AttackScenario
	attacker  string
	newEnv    func(attacker string) (*Environment, error)
	onAttack  func(*domain.AttackResult)
	verbose   bool
}

// Options for creating an Orchestrator.
type Options struct {
	// Required stores
	ResultStore storage.AttackResultStore
	RecordStore storage.ManipulationRecordStore

	// Optional analytical store; skipped when nil
	ImpactStore storage.ImpactTimeseriesStore

	// Scenarios to run; defaults to the three presets
	Scenarios []domain.AttackScenario

	// Attacker account name; defaults to DefaultAttacker
	Attacker string

	// Environment factory; defaults to NewDefaultEnvironment
	NewEnvironment func(attacker string) (*Environment, error)

	// OnAttack is invoked after each run is persisted, reverted runs
	// included. Used by the server to stream results to subscribers.
	OnAttack func(*domain.AttackResult)

	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	scenarios := opts.Scenarios
	if len(scenarios) == 0 {
		scenarios = []domain.AttackScenario{
			domain.ScenarioConfigPumpAndDump,
			domain.ScenarioConfigSandwich,
			domain.ScenarioConfigOracleDelay,
		}
	}
	attacker := opts.Attacker
	if attacker == "" {
		attacker = DefaultAttacker
	}
	newEnv := opts.NewEnvironment
	if newEnv == nil {
		newEnv = NewDefaultEnvironment
	}
	return &Orchestrator{
		resultStore: opts.ResultStore,
		recordStore: opts.RecordStore,
		impactStore: opts.ImpactStore,
		scenarios:   scenarios,
		attacker:    attacker,
		newEnv:      newEnv,
		onAttack:    opts.OnAttack,
		verbose:     opts.Verbose,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	AttacksRun            int
	AttacksReverted       int
	RecordsStored         int
	LiquidationsTriggered int
	Errors                []string
}

// Run executes every configured scenario.
// Phases per scenario:
//  1. Build a fresh environment
//  2. Execute the attack sequence atomically
//  3. Persist records, result and impact points
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	for _, scenario := range o.scenarios {
		o.log("Running scenario %s...", scenario.ScenarioID)

		attack, err := o.runScenario(ctx, scenario)
		if err != nil {
			var seqErr *liquidation.SequenceError
			if errors.As(err, &seqErr) {
				// Reverted runs are an expected outcome; the rolled-back
				// result and partial log were persisted by runScenario.
				result.AttacksReverted++
				observability.RecordRevert()
				o.log("  Scenario %s reverted at step %d: %v",
					scenario.ScenarioID, seqErr.Step, seqErr.Err)
			} else {
				result.Errors = append(result.Errors,
					fmt.Sprintf("scenario %s: %v", scenario.ScenarioID, err))
				continue
			}
		}
		result.AttacksRun++

		if attack != nil {
			result.RecordsStored += len(attack.Records)
			if attack.TriggersLiquidation {
				result.LiquidationsTriggered++
			}
			o.log("  Scenario %s: status=%s liquidation=%t records=%d",
				scenario.ScenarioID, attack.Status, attack.TriggersLiquidation, len(attack.Records))
		}
	}

	o.log("Pipeline completed: %d attacks (%d reverted), %d records, %d liquidations, %d errors",
		result.AttacksRun, result.AttacksReverted, result.RecordsStored,
		result.LiquidationsTriggered, len(result.Errors))

	return result, nil
}

// runScenario executes one scenario in a fresh environment and persists the
// outcome. A SequenceError is returned alongside the reverted result so the
// caller can count it without losing the diagnostics.
func (o *Orchestrator) runScenario(ctx context.Context, scenario domain.AttackScenario) (*domain.AttackResult, error) {
	env, err := o.newEnv(o.attacker)
	if err != nil {
		return nil, fmt.Errorf("build environment: %w", err)
	}

	attackID := idhash.ComputeAttackID(
		scenario.ScenarioID, scenario.TargetAsset,
		env.Ledger.CurrentBlock(), env.Ledger.CurrentTime(),
	)

	engine := manipulation.NewEngine(manipulation.Options{
		Pool:     env.Pool,
		Ledger:   env.Ledger,
		AttackID: attackID,
		Attacker: o.attacker,
	})
	evaluator := liquidation.NewEvaluator("USDC", scenario.TargetAsset, scenario.QuoteAsset)
	run := liquidation.NewRun(engine, env.Position, evaluator)

	started := time.Now()
	attack, runErr := run.Execute(attackID, scenario.ScenarioID, o.stepsFor(scenario))
	if attack == nil {
		return nil, runErr
	}

	observability.RecordAttack(scenario.ScenarioID, attack.Status,
		attack.TriggersLiquidation, time.Since(started).Seconds())
	for _, r := range attack.Records {
		observability.RecordManipulation(r.Kind, r.ImpactBps)
	}

	if err := o.persist(ctx, attack); err != nil {
		return nil, err
	}
	if o.onAttack != nil {
		o.onAttack(attack)
	}
	return attack, runErr
}

// stepsFor translates a scenario into its ordered manipulation sequence.
func (o *Orchestrator) stepsFor(scenario domain.AttackScenario) []liquidation.Step {
	switch scenario.ScenarioID {
	case domain.ScenarioPumpAndDump:
		// The pump buys target with the trade amount; the dump sells back
		// exactly what the pump acquired.
		acquired := new(big.Int)
		return []liquidation.Step{
			func(e *manipulation.Engine) (*big.Int, error) {
				before := new(big.Int).Set(e.Pool().ReserveA)
				_, err := e.Pump(scenario.TargetAsset, scenario.TradeAmount)
				if err != nil {
					return nil, err
				}
				acquired.Sub(before, e.Pool().ReserveA)
				return nil, nil
			},
			func(e *manipulation.Engine) (*big.Int, error) {
				_, err := e.Dump(scenario.TargetAsset, acquired)
				return nil, err
			},
		}
	case domain.ScenarioSandwich:
		return []liquidation.Step{
			func(e *manipulation.Engine) (*big.Int, error) {
				_, profit, err := e.Sandwich(scenario.VictimAmount, scenario.AttackerCapital)
				return profit, err
			},
		}
	case domain.ScenarioOracleDelay:
		return []liquidation.Step{
			func(e *manipulation.Engine) (*big.Int, error) {
				_, err := e.DelayExploit(scenario.TargetAsset, scenario.TradeAmount, scenario.DelaySeconds)
				return nil, err
			},
		}
	default:
		return nil
	}
}

// persist stores the record log, the result row and the analytical points.
// Duplicate keys are skipped: re-running a deterministic attack ID is a
// no-op, matching append-only semantics.
func (o *Orchestrator) persist(ctx context.Context, attack *domain.AttackResult) error {
	if err := o.recordStore.InsertBulk(ctx, attack.Records); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("store records: %w", err)
	}

	if err := o.resultStore.Insert(ctx, attack); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("store result: %w", err)
	}

	if o.impactStore != nil && len(attack.Records) > 0 {
		points := make([]*domain.ImpactPoint, len(attack.Records))
		for i, r := range attack.Records {
			points[i] = domain.ImpactPointFromRecord(r)
		}
		if err := o.impactStore.InsertBulk(ctx, points); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("store impact points: %w", err)
		}
	}

	return nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
