package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders attack rows as CSV string.
func RenderCSV(attacks []AttackRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("attack_id,scenario_id,status,triggers_liquidation,")
	sb.WriteString("max_repayable,seize_tokens,profit,")
	sb.WriteString("record_count,start_block,end_block,created_at\n")

	// Rows
	for _, a := range attacks {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%t,%s,%s,%s,%d,%d,%d,%d\n",
			a.AttackID,
			a.ScenarioID,
			a.Status,
			a.TriggersLiquidation,
			a.MaxRepayable,
			a.SeizeTokens,
			a.Profit,
			a.RecordCount,
			a.StartBlock,
			a.EndBlock,
			a.CreatedAt,
		))
	}

	return sb.String()
}
