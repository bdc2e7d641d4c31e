package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "AES-256-GCM", cfg.DefaultAlgorithm)
	assert.Equal(t, 600000, cfg.PBKDF2Iterations)
	assert.Equal(t, 32, cfg.PBKDF2KeyLength)
	assert.Equal(t, 8, cfg.SessionExpiryHours)
	assert.Equal(t, 10000, cfg.MaxLogEntries)
}

func TestApply_RunsOptionsInOrder(t *testing.T) {
	cfg := DefaultConfig()
	err := Apply(cfg, []Option{
		WithPBKDF2Iterations(200000),
		WithMaxLogEntries(500),
	})
	require.NoError(t, err)
	assert.Equal(t, 200000, cfg.PBKDF2Iterations)
	assert.Equal(t, 500, cfg.MaxLogEntries)
}

func TestApply_StopsAtFirstError(t *testing.T) {
	cfg := DefaultConfig()
	err := Apply(cfg, []Option{
		WithMaxLogEntries(500),
		WithSessionExpiry(-1),
		WithMaxLogEntries(999), // must never run
	})
	assert.Error(t, err)
	assert.Equal(t, 500, cfg.MaxLogEntries)
}

func TestWithSessionExpiry_RejectsNonPositive(t *testing.T) {
	cfg := DefaultConfig()
	err := WithSessionExpiry(0)(cfg)
	assert.Error(t, err)
}

func TestWithDBPath_ValidatesWritable(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()

	err := WithDBPath(filepath.Join(dir, "data"))(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DBPath)
}

func TestLoadEnv_MissingFileIsNotAnError(t *testing.T) {
	cfg := DefaultConfig()
	err := LoadEnv(cfg, filepath.Join(t.TempDir(), "does-not-exist.env"))
	assert.NoError(t, err)
}

func TestLoadEnv_OverridesFromEnvironment(t *testing.T) {
	os.Setenv("MEDVAULT_PBKDF2_ITERATIONS", "777000")
	os.Setenv("MEDVAULT_DB_PATH", "/tmp/medvault-test")
	defer os.Unsetenv("MEDVAULT_PBKDF2_ITERATIONS")
	defer os.Unsetenv("MEDVAULT_DB_PATH")

	cfg := DefaultConfig()
	err := LoadEnv(cfg, filepath.Join(t.TempDir(), "does-not-exist.env"))
	require.NoError(t, err)

	assert.Equal(t, 777000, cfg.PBKDF2Iterations)
	assert.Equal(t, "/tmp/medvault-test", cfg.DBPath)
}

func TestLoadYAML_MergesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medvault.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pbkdf2_iterations: 650000\nmax_log_entries: 42\n"), 0644))

	cfg := DefaultConfig()
	require.NoError(t, LoadYAML(cfg, path))

	assert.Equal(t, 650000, cfg.PBKDF2Iterations)
	assert.Equal(t, 42, cfg.MaxLogEntries)
}

func TestToYAML_RoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	data, err := ToYAML(cfg)
	require.NoError(t, err)

	roundTripped := &Config{}
	require.NoError(t, yaml.Unmarshal(data, roundTripped))
	assert.Equal(t, cfg.PBKDF2Iterations, roundTripped.PBKDF2Iterations)
}
