package idhash

import "testing"

func TestComputeAttackID_Deterministic(t *testing.T) {
	a := ComputeAttackID("pump_and_dump", "ETH", 100, 1_700_000_000)
	b := ComputeAttackID("pump_and_dump", "ETH", 100, 1_700_000_000)
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if a == "" {
		t.Error("empty attack ID")
	}
}

func TestComputeAttackID_InputSensitivity(t *testing.T) {
	base := ComputeAttackID("pump_and_dump", "ETH", 100, 1_700_000_000)

	variants := []string{
		ComputeAttackID("sandwich", "ETH", 100, 1_700_000_000),
		ComputeAttackID("pump_and_dump", "WBTC", 100, 1_700_000_000),
		ComputeAttackID("pump_and_dump", "ETH", 101, 1_700_000_000),
		ComputeAttackID("pump_and_dump", "ETH", 100, 1_700_000_001),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base ID", i)
		}
	}
}
