// Package config loads the run configuration that drives one
// generation (spec §6): target soldier/source counts, the root seed,
// distribution targets, and the rebalancer's budget. Values come from a
// TOML file, overridden by environment variables, the way the teacher's
// api.APIConfig layers env overrides on top of computed defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/rgonzalez12/posthist/internal/log"
)

// RunConfig is every knob a single `generate` invocation needs.
type RunConfig struct {
	RootSeed     int64  `toml:"root_seed"`
	SoldierCount int    `toml:"soldier_count"`
	SourceCount  int    `toml:"source_count"`
	OutputDir    string `toml:"output_dir"`

	HierarchyPath string `toml:"hierarchy_path"`
	ArchetypePath string `toml:"archetype_path"` // empty uses the builtin catalog
	SituationPath string `toml:"situation_path"`

	CollisionCoverageTarget float64 `toml:"collision_coverage_target"`
	MaxCollisionRetries     int     `toml:"max_collision_retries"`

	AssignerMeanRecordsPerSoldier float64 `toml:"assigner_mean_records_per_soldier"`
	AssignerMinSourceSize         int     `toml:"assigner_min_source_size"`
	AssignerMaxSourceSize         int     `toml:"assigner_max_source_size"`

	TierEasy     float64 `toml:"tier_easy"`
	TierModerate float64 `toml:"tier_moderate"`
	TierHard     float64 `toml:"tier_hard"`
	TierExtreme  float64 `toml:"tier_extreme"`

	EnableRebalancer   bool    `toml:"enable_rebalancer"`
	RebalanceTolerance float64 `toml:"rebalance_tolerance"`
	RebalanceMaxPasses int     `toml:"rebalance_max_passes"`
}

// Default returns the run config's baked-in defaults, overridden by
// whatever a TOML file or the environment supplies on top.
func Default() RunConfig {
	return RunConfig{
		RootSeed:     1,
		SoldierCount: 500,
		SourceCount:  300,
		OutputDir:    "./corpus",

		HierarchyPath: "./config/hierarchy.yaml",
		SituationPath: "./config/situations.yaml",

		CollisionCoverageTarget: 0.35,
		MaxCollisionRetries:     8,

		AssignerMeanRecordsPerSoldier: 20,
		AssignerMinSourceSize:         1,
		AssignerMaxSourceSize:         12,

		TierEasy:     0.40,
		TierModerate: 0.30,
		TierHard:     0.20,
		TierExtreme:  0.10,

		EnableRebalancer:   true,
		RebalanceTolerance: 0.03,
		RebalanceMaxPasses: 5,
	}
}

// LoadDotEnv overlays a .env file onto the process environment, if
// present. A missing file is not an error: env overlays are optional.
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		log.Warn("failed to load .env overlay", "path", path, "error", err.Error())
	}
}

// Load reads a TOML run config from path (empty path skips the file and
// uses defaults), applies environment overrides, validates, and returns
// the result.
func Load(path string) (RunConfig, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return RunConfig{}, fmt.Errorf("decoding run config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}

	log.Info("run configuration loaded",
		"root_seed", cfg.RootSeed,
		"soldier_count", cfg.SoldierCount,
		"source_count", cfg.SourceCount,
		"output_dir", cfg.OutputDir,
		"enable_rebalancer", cfg.EnableRebalancer)

	return cfg, nil
}

func applyEnvOverrides(cfg *RunConfig) {
	cfg.RootSeed = getEnvInt64("POSTHISTGEN_ROOT_SEED", cfg.RootSeed)
	cfg.SoldierCount = getEnvInt("POSTHISTGEN_SOLDIER_COUNT", cfg.SoldierCount)
	cfg.SourceCount = getEnvInt("POSTHISTGEN_SOURCE_COUNT", cfg.SourceCount)
	cfg.OutputDir = getEnvString("POSTHISTGEN_OUTPUT_DIR", cfg.OutputDir)
	cfg.HierarchyPath = getEnvString("POSTHISTGEN_HIERARCHY_PATH", cfg.HierarchyPath)
	cfg.ArchetypePath = getEnvString("POSTHISTGEN_ARCHETYPE_PATH", cfg.ArchetypePath)
	cfg.SituationPath = getEnvString("POSTHISTGEN_SITUATION_PATH", cfg.SituationPath)
	cfg.CollisionCoverageTarget = getEnvFloat("POSTHISTGEN_COLLISION_COVERAGE_TARGET", cfg.CollisionCoverageTarget)
	cfg.RebalanceMaxPasses = getEnvInt("POSTHISTGEN_REBALANCE_MAX_PASSES", cfg.RebalanceMaxPasses)
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Warn("invalid integer in environment variable, using fallback", "env_key", key, "value", v)
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
		log.Warn("invalid integer in environment variable, using fallback", "env_key", key, "value", v)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
		log.Warn("invalid float in environment variable, using fallback", "env_key", key, "value", v)
	}
	return fallback
}

// Validate checks that the config's values are internally consistent
// before the orchestrator commits to a run.
func (c *RunConfig) Validate() error {
	if c.SoldierCount <= 0 {
		return fmt.Errorf("soldier_count must be positive, got %d", c.SoldierCount)
	}
	if c.SourceCount <= 0 {
		return fmt.Errorf("source_count must be positive, got %d", c.SourceCount)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.HierarchyPath == "" {
		return fmt.Errorf("hierarchy_path is required")
	}
	if c.SituationPath == "" {
		return fmt.Errorf("situation_path is required")
	}
	if c.CollisionCoverageTarget < 0 || c.CollisionCoverageTarget > 1 {
		return fmt.Errorf("collision_coverage_target must be in [0,1], got %f", c.CollisionCoverageTarget)
	}
	if c.AssignerMinSourceSize <= 0 || c.AssignerMaxSourceSize < c.AssignerMinSourceSize {
		return fmt.Errorf("assigner_min_source_size/assigner_max_source_size are inconsistent")
	}
	sum := c.TierEasy + c.TierModerate + c.TierHard + c.TierExtreme
	if sum <= 0 {
		return fmt.Errorf("tier targets must sum to a positive value")
	}
	if c.RebalanceMaxPasses < 0 {
		return fmt.Errorf("rebalance_max_passes must be non-negative")
	}
	return nil
}
