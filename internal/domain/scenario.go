package domain

import "math/big"

// AttackScenario represents the parameters of one orchestrated attack run.
type AttackScenario struct {
	ScenarioID      string   // "pump_and_dump" | "sandwich" | "oracle_delay"
	Kind            string   // manipulation kind driving the run
	TargetAsset     string   // asset under attack
	QuoteAsset      string   // asset the attacker funds the run with
	TradeAmount     *big.Int // pump/dump size in quote base units
	AttackerCapital *big.Int // sandwich capital in quote base units
	VictimAmount    *big.Int // independent victim trade size (sandwich)
	DelaySeconds    int64    // oracle staleness window (oracle_delay)
}

// Scenario ID constants
const (
	ScenarioPumpAndDump = "pump_and_dump"
	ScenarioSandwich    = "sandwich"
	ScenarioOracleDelay = "oracle_delay"
)

func wholeTokens(n int64) *big.Int {
	wad, _ := new(big.Int).SetString("1000000000000000000", 10)
	return new(big.Int).Mul(big.NewInt(n), wad)
}

// Predefined scenario configurations against the default ETH/USDC fixture.
var (
	ScenarioConfigPumpAndDump = AttackScenario{
		ScenarioID:  ScenarioPumpAndDump,
		Kind:        ManipulationPump,
		TargetAsset: "ETH",
		QuoteAsset:  "USDC",
		TradeAmount: wholeTokens(400_000),
	}

	ScenarioConfigSandwich = AttackScenario{
		ScenarioID:      ScenarioSandwich,
		Kind:            ManipulationSandwich,
		TargetAsset:     "ETH",
		QuoteAsset:      "USDC",
		AttackerCapital: wholeTokens(200_000),
		VictimAmount:    wholeTokens(50_000),
	}

	ScenarioConfigOracleDelay = AttackScenario{
		ScenarioID:   ScenarioOracleDelay,
		Kind:         ManipulationOracleDelay,
		TargetAsset:  "ETH",
		QuoteAsset:   "USDC",
		TradeAmount:  wholeTokens(300_000),
		DelaySeconds: 300,
	}
)
