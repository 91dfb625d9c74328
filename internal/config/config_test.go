package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.SoldierCount)
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
soldier_count = 42
source_count = 10
output_dir = "./out"
hierarchy_path = "./h.yaml"
situation_path = "./s.yaml"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.SoldierCount)
	assert.Equal(t, 10, cfg.SourceCount)
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
soldier_count = 42
source_count = 10
output_dir = "./out"
hierarchy_path = "./h.yaml"
situation_path = "./s.yaml"
`), 0o644))

	t.Setenv("POSTHISTGEN_SOLDIER_COUNT", "99")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.SoldierCount)
}

func TestValidate_RejectsZeroSoldierCount(t *testing.T) {
	cfg := Default()
	cfg.SoldierCount = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsInconsistentSourceSizeBounds(t *testing.T) {
	cfg := Default()
	cfg.AssignerMinSourceSize = 10
	cfg.AssignerMaxSourceSize = 2
	assert.Error(t, cfg.Validate())
}
