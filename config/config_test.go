package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eidetica/eidetica/height"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().StoragePath, cfg.StoragePath)
	assert.Equal(t, height.Incremental, cfg.ResolvedHeightStrategy())
}

func TestLoad_YAMLOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eidetica.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_path: /var/lib/eidetica\nheight_strategy: timestamp\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/eidetica", cfg.StoragePath)
	assert.Equal(t, height.Timestamp, cfg.ResolvedHeightStrategy())
}

func TestResolvedHeightStrategy_InvalidFallsBack(t *testing.T) {
	cfg := Default()
	cfg.HeightStrategy = "bogus"
	assert.Equal(t, height.Incremental, cfg.ResolvedHeightStrategy())
}

func TestLoadTOMLProfile_OverlaysNonZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "eidetica.toml")
	require.NoError(t, os.WriteFile(path, []byte("storage_path = \"/opt/eidetica\"\n"), 0o600))

	cfg := Default()
	require.NoError(t, LoadTOMLProfile(cfg, path))
	assert.Equal(t, "/opt/eidetica", cfg.StoragePath)
	assert.Equal(t, Default().HeightStrategy, cfg.HeightStrategy)
}
