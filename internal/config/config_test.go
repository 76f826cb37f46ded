package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(raw, &cfg))
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "smokeapi", cfg.PreferredUnlocker)
	assert.False(t, cfg.ProxyMode)
	assert.Equal(t, uint64(10*1024*1024), cfg.MinFreeBytes)
	assert.NotEmpty(t, cfg.PayloadDir)
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteDefault(dir)
	require.NoError(t, err)

	_, err = WriteDefault(dir)
	assert.ErrorContains(t, err, "already exists")
}

func TestWriteDefault_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")

	path, err := WriteDefault(dir)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestLoad_ExplicitFile(t *testing.T) {
	Init()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"version: 1\npreferred_unlocker: creamapi\nproxy_mode: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "creamapi", cfg.PreferredUnlocker)
	assert.True(t, cfg.ProxyMode)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	Init()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
