package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rgonzalez12/posthist/internal/config"
	"github.com/rgonzalez12/posthist/internal/log"
	"github.com/rgonzalez12/posthist/internal/orchestrator"
)

var (
	genConfigPath    string
	genHierarchyPath string
	genClerksPath    string
	genSituationPath string
	genOutDir        string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic personnel-record corpus",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genConfigPath, "config", "", "run config TOML (defaults used if omitted)")
	generateCmd.Flags().StringVar(&genHierarchyPath, "hierarchy", "", "hierarchy YAML path (overrides config)")
	generateCmd.Flags().StringVar(&genClerksPath, "clerks", "", "clerk archetype YAML path (empty uses builtin catalog)")
	generateCmd.Flags().StringVar(&genSituationPath, "situations", "", "situation catalog YAML path (overrides config)")
	generateCmd.Flags().StringVar(&genOutDir, "out", "", "output directory (overrides config)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(genConfigPath)
	if err != nil {
		return err
	}
	if genHierarchyPath != "" {
		cfg.HierarchyPath = genHierarchyPath
	}
	if genClerksPath != "" {
		cfg.ArchetypePath = genClerksPath
	}
	if genSituationPath != "" {
		cfg.SituationPath = genSituationPath
	}
	if genOutDir != "" {
		cfg.OutputDir = genOutDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := orchestrator.Load(cfg)
	if err != nil {
		return err
	}

	records, soldiers, sources, assessments, summary, err := p.Run(cfg.RootSeed)
	if err != nil {
		return err
	}

	out := cfg.OutputDir
	if err := orchestrator.WriteRawRecords(filepath.Join(out, "records.csv"), records); err != nil {
		return err
	}
	if err := orchestrator.WriteRecordMetadata(filepath.Join(out, "metadata.csv"), records); err != nil {
		return err
	}
	if err := orchestrator.WriteSoldierLabels(filepath.Join(out, "labels.csv"), soldiers, p.Hierarchy); err != nil {
		return err
	}
	if err := orchestrator.WriteSources(filepath.Join(out, "sources.csv"), sources); err != nil {
		return err
	}
	if err := orchestrator.WriteDifficulty(filepath.Join(out, "difficulty.csv"), assessments); err != nil {
		return err
	}

	log.Info("corpus written",
		"output_dir", out,
		"soldier_count", summary.SoldierCount,
		"source_count", summary.SourceCount,
		"record_count", summary.RecordCount,
		"collision_coverage", summary.CollisionCoverage,
		"rebalance_passes", summary.RebalancePasses,
		"tier_counts", summary.TierCounts)

	return nil
}
