package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeAttackID computes a deterministic attack_id.
// Formula: base58(SHA256(scenario_id|target_asset|start_block|start_time))
// The base58 encoding keeps IDs compact and copy-paste safe in reports.
func ComputeAttackID(
	scenarioID string,
	targetAsset string,
	startBlock uint64,
	startTime int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%d",
		scenarioID,
		targetAsset,
		startBlock,
		startTime,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
