// Package main runs the preset attack scenarios once against in-memory
// stores and writes the resulting report files. Useful for demos and for
// checking scenario math without a database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/orchestrator"
	"amm-attack-lab/internal/reporting"
	"amm-attack-lab/internal/storage/memory"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	scenarios := flag.String("scenarios", "", "Comma-separated scenario IDs to run (default: all presets)")
	criticalBps := flag.Int64("critical-bps", reporting.DefaultCriticalThresholdBps, "Impact threshold in basis points for critical events")
	verbose := flag.Bool("verbose", false, "Verbose pipeline logging")
	flag.Parse()

	ctx := context.Background()

	selected, err := resolveScenarios(*scenarios)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// In-memory stores: each invocation starts from a clean slate
	resultStore := memory.NewAttackResultStore()
	recordStore := memory.NewManipulationRecordStore()
	impactStore := memory.NewImpactTimeseriesStore()

	orch := orchestrator.New(orchestrator.Options{
		ResultStore: resultStore,
		RecordStore: recordStore,
		ImpactStore: impactStore,
		Scenarios:   selected,
		Verbose:     *verbose,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running attacks: %v\n", err)
		os.Exit(1)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Scenario error: %s\n", e)
	}

	// Generate and write reports
	report, err := reporting.NewGenerator(resultStore, recordStore).
		WithCriticalThreshold(*criticalBps).
		Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	mdPath := filepath.Join(*outputDir, "ATTACK_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", mdPath, err)
		os.Exit(1)
	}
	csvPath := filepath.Join(*outputDir, "ATTACK_RESULTS.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Attacks)), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", csvPath, err)
		os.Exit(1)
	}

	fmt.Printf("Ran %d attacks (%d reverted), %d records, %d liquidations triggered\n",
		result.AttacksRun, result.AttacksReverted, result.RecordsStored, result.LiquidationsTriggered)
	fmt.Println("Report files:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

// resolveScenarios maps comma-separated scenario IDs to preset configs.
// Empty input selects all presets.
func resolveScenarios(list string) ([]domain.AttackScenario, error) {
	presets := map[string]domain.AttackScenario{
		domain.ScenarioPumpAndDump: domain.ScenarioConfigPumpAndDump,
		domain.ScenarioSandwich:    domain.ScenarioConfigSandwich,
		domain.ScenarioOracleDelay: domain.ScenarioConfigOracleDelay,
	}

	if list == "" {
		return nil, nil // orchestrator defaults to all presets
	}

	var selected []domain.AttackScenario
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		preset, ok := presets[id]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", id)
		}
		selected = append(selected, preset)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no scenarios selected")
	}
	return selected, nil
}
