package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2, cfg.Index.MaxConcurrentIndex)
	assert.Equal(t, 50, cfg.Index.BatchSize)
	assert.Equal(t, 1800, cfg.Embedder.MaxChars)
	assert.Equal(t, 768, cfg.Embedder.Dimensions)
	assert.Equal(t, 32000, cfg.MaxResultChars())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Index, cfg.Index)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  batch_size: 10\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Index.BatchSize)
	assert.Equal(t, 2, cfg.Index.MaxConcurrentIndex)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("OPENSRC_DIR", "/tmp/custom-opensrc")
	t.Setenv("OPENSRC_EMBEDDER_PROVIDER", "static")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-opensrc", cfg.DataDir)
	assert.Equal(t, "static", cfg.Embedder.Provider)
}

func TestDataDir_Precedence(t *testing.T) {
	t.Setenv("OPENSRC_DIR", "/tmp/a")
	assert.Equal(t, "/tmp/a", DataDir())

	os.Unsetenv("OPENSRC_DIR")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/opensrc", DataDir())
}
