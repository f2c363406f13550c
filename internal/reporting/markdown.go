package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Attack Simulation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Scenarios: %d | Critical threshold: %d bps\n\n",
		r.ScenarioCount, r.CriticalThresholdBps))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Attacks | %d |\n", r.Summary.TotalAttacks))
	sb.WriteString(fmt.Sprintf("| Reported | %d |\n", r.Summary.Reported))
	sb.WriteString(fmt.Sprintf("| Reverted | %d |\n", r.Summary.Reverted))
	sb.WriteString(fmt.Sprintf("| Liquidations Triggered | %d |\n", r.Summary.LiquidationsTriggered))
	sb.WriteString(fmt.Sprintf("| Manipulation Records | %d |\n", r.Summary.TotalRecords))
	sb.WriteString(fmt.Sprintf("| Total Profit (wad) | %s |\n", r.Summary.TotalProfit))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.Summary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.Summary.DateRangeEnd))
	sb.WriteString("\n")

	// Per-kind aggregates
	sb.WriteString("## Impact by Manipulation Kind\n\n")
	if len(r.KindAggregates) > 0 {
		sb.WriteString("| Kind | Count | Mean Impact (bps) | Max Impact (bps) | Critical |\n")
		sb.WriteString("|------|-------|-------------------|------------------|----------|\n")
		for _, k := range r.KindAggregates {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d |\n",
				k.Kind, k.Count, k.MeanImpactBps, k.MaxImpactBps, k.CriticalCount))
		}
	} else {
		sb.WriteString("No manipulation records available.\n")
	}
	sb.WriteString("\n")

	// Critical events
	sb.WriteString("## Critical Events\n\n")
	if len(r.CriticalEvents) > 0 {
		sb.WriteString("| Attack | Seq | Kind | Asset | Impact (bps) | Block |\n")
		sb.WriteString("|--------|-----|------|-------|--------------|-------|\n")
		for _, e := range r.CriticalEvents {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %d | %d |\n",
				e.AttackID, e.Seq, e.Kind, e.TargetAsset, e.ImpactBps, e.Block))
		}
	} else {
		sb.WriteString("No record crossed the critical threshold.\n")
	}
	sb.WriteString("\n")

	// Attacks
	sb.WriteString("## Attacks\n\n")
	if len(r.Attacks) > 0 {
		sb.WriteString("| Attack | Scenario | Status | Liquidation | Max Repayable | Seize | Profit | Records | Blocks |\n")
		sb.WriteString("|--------|----------|--------|-------------|---------------|-------|--------|---------|--------|\n")
		for _, a := range r.Attacks {
			liquidation := "no"
			if a.TriggersLiquidation {
				liquidation = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %d | %d-%d |\n",
				a.AttackID, a.ScenarioID, a.Status, liquidation,
				a.MaxRepayable, a.SeizeTokens, a.Profit,
				a.RecordCount, a.StartBlock, a.EndBlock))
		}
	} else {
		sb.WriteString("No attacks recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
