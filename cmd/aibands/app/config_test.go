package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiem/ai-bands/pkg/constants"
	"github.com/romiem/ai-bands/pkg/errors"
)

// isolate runs the test in an empty directory with an empty home.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ".", config.Root)
	assert.Equal(t, constants.DefaultSrcDir, config.SrcDir)
	assert.Equal(t, constants.DefaultDistDir, config.DistDir)
	assert.Equal(t, constants.DefaultSchemaFile, config.Schema)
	assert.Equal(t, "unionfind", config.ClusterStrategy)
	assert.Equal(t, constants.DefaultLedgerFile, config.Ledger)
	assert.Equal(t, "auto", config.LogFormat)
	assert.Empty(t, config.LogLevel, "empty level defers to -v/-q")
	assert.Empty(t, config.ConfigFile)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := isolate(t)
	file := "root: /catalog\nsrc_dir: artists\ncluster_strategy: scan\ndry_run: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".aibands.yaml"), []byte(file), 0o644))
	t.Setenv("AIBANDS_SRC_DIR", "from-env")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/catalog", config.Root)
	assert.Equal(t, "from-env", config.SrcDir, "environment beats the config file")
	assert.Equal(t, "scan", config.ClusterStrategy)
	assert.True(t, config.DryRun)
	assert.Equal(t, ".aibands.yaml", filepath.Base(config.ConfigFile))

	config.UpdateFromFlags(true, false, true, "json", "", "/elsewhere")
	assert.Equal(t, "/elsewhere", config.Root)
	assert.Equal(t, "json", config.Format)
	assert.True(t, config.Verbose)
	assert.True(t, config.NoColor)
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)

	_, err := LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger: \"\"\n"), 0o644))
	config, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Empty(t, config.Ledger, "an empty ledger path disables journaling")
}

func TestConfigPath(t *testing.T) {
	config := &Config{Root: "/catalog"}
	assert.Equal(t, "/catalog/src", config.Path("src"))
	assert.Equal(t, "/abs/schema.json", config.Path("/abs/schema.json"))
	assert.Empty(t, config.Path(""))
}
