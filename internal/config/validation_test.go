package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestValidator_Validate_ClampsIterationsAndKeyLength(t *testing.T) {
	cfg := validConfig(t)
	cfg.PBKDF2Iterations = 1000
	cfg.PBKDF2KeyLength = 8

	v := NewValidator()
	require.NoError(t, v.Validate(cfg))

	assert.Equal(t, 100000, cfg.PBKDF2Iterations)
	assert.Equal(t, 32, cfg.PBKDF2KeyLength)
}

func TestValidator_Validate_RejectsNonPositiveDurations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"session expiry", func(c *Config) { c.SessionExpiryHours = 0 }},
		{"key rotation", func(c *Config) { c.KeyRotationDays = -1 }},
		{"audit retention", func(c *Config) { c.AuditRetentionDays = 0 }},
		{"max log entries", func(c *Config) { c.MaxLogEntries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := NewValidator().Validate(cfg)
			assert.Error(t, err)
		})
	}
}

func TestValidator_Validate_RejectsShortNonce(t *testing.T) {
	cfg := validConfig(t)
	cfg.NonceLength = 8
	assert.Error(t, NewValidator().Validate(cfg))
}

func TestValidator_Validate_RejectsUnsupportedAlgorithm(t *testing.T) {
	cfg := validConfig(t)
	cfg.DefaultAlgorithm = "DES"
	assert.Error(t, NewValidator().Validate(cfg))
}

func TestValidator_Validate_RejectsEmptyDBPath(t *testing.T) {
	cfg := validConfig(t)
	cfg.DBPath = ""
	assert.Error(t, NewValidator().Validate(cfg))
}

func TestValidator_Validate_RejectsNilConfig(t *testing.T) {
	assert.Error(t, NewValidator().Validate(nil))
}

func TestValidator_Validate_AcceptsDefaults(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, NewValidator().Validate(cfg))
}
