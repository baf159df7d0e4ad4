package formulangcfg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/formulang/formulangcfg"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestFindConfig_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	writeConfig(t, root, ".formulang.yaml", "solver:\n  penalty: 5000\n")

	path, err := formulangcfg.FindConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".formulang.yaml"), path)
}

func TestFindConfig_NotFound(t *testing.T) {
	t.Parallel()

	_, err := formulangcfg.FindConfig(t.TempDir())
	require.ErrorIs(t, err, formulangcfg.ErrConfigNotFound)
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, ".formulang.yaml", `
solver:
  penalty: 2000000
  tolerance: 0.001
rounding:
  amount: 2
files:
  "premix/*.fm":
    amount: 4
`)

	cfg, err := formulangcfg.LoadConfigFile(filepath.Join(dir, ".formulang.yaml"))
	require.NoError(t, err)

	assert.InDelta(t, 2_000_000.0, cfg.Solver.Penalty, 0)
	assert.InDelta(t, 0.001, cfg.Solver.Tolerance, 0)
	assert.Equal(t, 2, cfg.Rounding.Amount)
}

func TestConfig_RoundingFor(t *testing.T) {
	t.Parallel()

	cfg := &formulangcfg.Config{
		Rounding: formulangcfg.RoundingConfig{Amount: 2},
		Files: map[string]formulangcfg.RoundingConfig{
			"premix/*.fm": {Amount: 4},
		},
	}

	assert.Equal(t, 4, cfg.RoundingFor("premix/starter.fm").Amount)
	assert.Equal(t, 2, cfg.RoundingFor("grower.fm").Amount)
}
