package manipulation

import (
	"errors"
	"math/big"
	"testing"

	"amm-attack-lab/internal/amm"
	"amm-attack-lab/internal/chain"
	"amm-attack-lab/internal/domain"
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), amm.Wad)
}

func newTestEngine(t *testing.T, feeBps uint64) (*Engine, *chain.SimLedger) {
	t.Helper()
	pool, err := amm.NewPool("ETH", "USDC", wad(1_000), wad(2_000_000), feeBps)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	ledger := chain.NewSimLedger(100, 1_700_000_000)
	engine := NewEngine(Options{
		Pool:     pool,
		Ledger:   ledger,
		AttackID: "test-attack",
		Attacker: "attacker",
	})
	return engine, ledger
}

func TestPump(t *testing.T) {
	engine, _ := newTestEngine(t, amm.DefaultFeeBps)

	record, err := engine.Pump("ETH", wad(200_000))
	if err != nil {
		t.Fatalf("Pump failed: %v", err)
	}

	if record.Kind != domain.ManipulationPump {
		t.Errorf("expected pump record, got %s", record.Kind)
	}
	if record.ManipulatedPrice.Cmp(record.OriginalPrice) <= 0 {
		t.Errorf("pump did not raise the price: %s -> %s", record.OriginalPrice, record.ManipulatedPrice)
	}
	if record.ImpactBps <= 0 {
		t.Errorf("expected positive impact, got %d", record.ImpactBps)
	}
	if record.Block != 100 || record.Timestamp != 1_700_000_000 {
		t.Errorf("record not stamped with logical clock: block=%d ts=%d", record.Block, record.Timestamp)
	}
	if len(engine.Records()) != 1 {
		t.Errorf("expected exactly one record, got %d", len(engine.Records()))
	}
}

func TestDump(t *testing.T) {
	engine, _ := newTestEngine(t, amm.DefaultFeeBps)

	if _, err := engine.Pump("ETH", wad(200_000)); err != nil {
		t.Fatalf("Pump failed: %v", err)
	}
	record, err := engine.Dump("ETH", wad(50))
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	if record.Kind != domain.ManipulationDump {
		t.Errorf("expected dump record, got %s", record.Kind)
	}
	if record.ManipulatedPrice.Cmp(record.OriginalPrice) >= 0 {
		t.Errorf("dump did not lower the price: %s -> %s", record.OriginalPrice, record.ManipulatedPrice)
	}
	if records := engine.Records(); len(records) != 2 || records[1].Seq != 1 {
		t.Errorf("expected two sequenced records, got %d", len(records))
	}
}

func TestUnknownAsset(t *testing.T) {
	engine, _ := newTestEngine(t, amm.DefaultFeeBps)

	if _, err := engine.Pump("DOGE", wad(100)); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
	if len(engine.Records()) != 0 {
		t.Error("failed operation appended a record")
	}
}

// A reference trade below one base unit cannot be quoted; the impact must
// degrade to zero instead of failing the manipulation.
func TestImpactDegradesToZero(t *testing.T) {
	engine, _ := newTestEngine(t, amm.DefaultFeeBps)

	record, err := engine.Pump("ETH", big.NewInt(5))
	if err != nil {
		t.Fatalf("Pump failed: %v", err)
	}
	if record.ImpactBps != 0 {
		t.Errorf("expected degraded zero impact, got %d", record.ImpactBps)
	}
}

func TestReset(t *testing.T) {
	engine, _ := newTestEngine(t, amm.DefaultFeeBps)

	if _, err := engine.Pump("ETH", wad(1_000)); err != nil {
		t.Fatalf("Pump failed: %v", err)
	}
	engine.Reset()
	if len(engine.Records()) != 0 {
		t.Error("Reset did not clear the record log")
	}
}

func TestSandwich(t *testing.T) {
	engine, ledger := newTestEngine(t, 0)
	ledger.SetBalance("USDC", "attacker", wad(200_000))

	record, profit, err := engine.Sandwich(wad(50_000), wad(200_000))
	if err != nil {
		t.Fatalf("Sandwich failed: %v", err)
	}

	if record.Kind != domain.ManipulationSandwich {
		t.Errorf("expected sandwich record, got %s", record.Kind)
	}
	if len(engine.Records()) != 1 {
		t.Errorf("expected one record for the whole sequence, got %d", len(engine.Records()))
	}

	// At zero fee the back-run sells into the victim-inflated price.
	if profit.Sign() <= 0 {
		t.Errorf("expected positive sandwich profit at zero fee, got %s", profit)
	}

	quoteBalance := ledger.Balance("USDC", "attacker")
	expected := new(big.Int).Add(wad(200_000), profit)
	if quoteBalance.Cmp(expected) != 0 {
		t.Errorf("quote balance %s does not reconcile with profit %s", quoteBalance, profit)
	}
	if target := ledger.Balance("ETH", "attacker"); target.Sign() != 0 {
		t.Errorf("attacker still holds target asset after back-run: %s", target)
	}
}

func TestSandwich_InsufficientCapital(t *testing.T) {
	engine, ledger := newTestEngine(t, amm.DefaultFeeBps)
	ledger.SetBalance("USDC", "attacker", wad(10))
	poolSnap := engine.Pool().Snapshot()

	_, _, err := engine.Sandwich(wad(50_000), wad(200_000))
	if !errors.Is(err, ErrInsufficientCapital) {
		t.Fatalf("expected ErrInsufficientCapital, got %v", err)
	}
	if !engine.Pool().Equal(poolSnap) {
		t.Error("failed sandwich mutated the pool")
	}
	if len(engine.Records()) != 0 {
		t.Error("failed sandwich appended a record")
	}
}

func TestDelayExploit(t *testing.T) {
	engine, ledger := newTestEngine(t, amm.DefaultFeeBps)

	record, err := engine.DelayExploit("ETH", wad(300_000), 300)
	if err != nil {
		t.Fatalf("DelayExploit failed: %v", err)
	}

	if record.Kind != domain.ManipulationOracleDelay {
		t.Errorf("expected oracle_delay record, got %s", record.Kind)
	}
	if record.ImpactBps <= 0 {
		t.Errorf("expected positive price discrepancy, got %d", record.ImpactBps)
	}
	if ledger.CurrentTime() != 1_700_000_300 {
		t.Errorf("clock not advanced by delay: %d", ledger.CurrentTime())
	}
	// The stale oracle price is the pre-pump spot price.
	if record.OriginalPrice.Cmp(wad(2_000)) != 0 {
		t.Errorf("expected stale oracle price 2000, got %s", record.OriginalPrice)
	}
}
