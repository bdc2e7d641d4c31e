// Package config loads and validates the runtime Config: derivation
// parameters, session/rotation/audit defaults, and storage location.
// Values come from an optional .env file (github.com/joho/godotenv) and
// an optional YAML file (gopkg.in/yaml.v3), with the .env overriding
// hard-coded defaults and the YAML overriding .env.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything spec.md §6's configuration table names.
type Config struct {
	DefaultAlgorithm   string `yaml:"default_algorithm"`
	PBKDF2Iterations   int    `yaml:"pbkdf2_iterations"`
	PBKDF2KeyLength    int    `yaml:"pbkdf2_key_length"`
	SessionExpiryHours int    `yaml:"session_expiry_hours"`
	KeyRotationDays    int    `yaml:"key_rotation_days"`
	AuditRetentionDays int    `yaml:"audit_retention_days"`
	NonceLength        int    `yaml:"nonce_length"`
	MaxLogEntries      int    `yaml:"max_log_entries"`

	DBPath     string `yaml:"db_path"`
	DBFilename string `yaml:"db_filename"`
}

// DefaultConfig returns the spec's defaults: 600,000 PBKDF2 iterations,
// a 32-byte key, 8-hour sessions, 90-day rotation, 365-day audit
// retention, a 12-byte nonce, and a 10,000-entry log bound.
func DefaultConfig() *Config {
	return &Config{
		DefaultAlgorithm:   "AES-256-GCM",
		PBKDF2Iterations:   600000,
		PBKDF2KeyLength:    32,
		SessionExpiryHours: 8,
		KeyRotationDays:    90,
		AuditRetentionDays: 365,
		NonceLength:        12,
		MaxLogEntries:      10000,
		DBPath:             ".medvault",
		DBFilename:         "medvault.db",
	}
}

// Option mutates a Config during construction, the same functional-options
// shape as the teacher's crypto-service constructor.
type Option func(*Config) error

// WithPBKDF2Iterations overrides the iteration count, floor-clamped to
// 100,000 by Validate rather than here, so callers can see the clamp
// happen during validation instead of silently at option-application time.
func WithPBKDF2Iterations(n int) Option {
	return func(c *Config) error {
		c.PBKDF2Iterations = n
		return nil
	}
}

// WithSessionExpiry overrides the session lifetime in hours.
func WithSessionExpiry(hours int) Option {
	return func(c *Config) error {
		if hours <= 0 {
			return fmt.Errorf("config: session expiry must be positive, got %d", hours)
		}
		c.SessionExpiryHours = hours
		return nil
	}
}

// WithMaxLogEntries overrides the audit/access log bound.
func WithMaxLogEntries(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("config: max log entries must be positive, got %d", n)
		}
		c.MaxLogEntries = n
		return nil
	}
}

// WithDBPath overrides the storage directory, validating it is writable.
func WithDBPath(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return fmt.Errorf("config: db path cannot be empty")
		}
		if err := checkDirectoryWritable(path); err != nil {
			return fmt.Errorf("config: db path validation failed: %w", err)
		}
		c.DBPath = path
		return nil
	}
}

// Apply runs every option against cfg in order, stopping at the first error.
func Apply(cfg *Config, opts []Option) error {
	for i, opt := range opts {
		if err := opt(cfg); err != nil {
			return fmt.Errorf("config: option %d failed: %w", i, err)
		}
	}
	return nil
}

// LoadEnv loads a .env file (if present; a missing file is not an error,
// matching godotenv.Load's own convention) and layers its
// MEDVAULT_-prefixed variables onto cfg.
func LoadEnv(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: load env: %w", err)
		}
	}

	if v := os.Getenv("MEDVAULT_PBKDF2_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MEDVAULT_PBKDF2_ITERATIONS: %w", err)
		}
		cfg.PBKDF2Iterations = n
	}
	if v := os.Getenv("MEDVAULT_SESSION_EXPIRY_HOURS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: MEDVAULT_SESSION_EXPIRY_HOURS: %w", err)
		}
		cfg.SessionExpiryHours = n
	}
	if v := os.Getenv("MEDVAULT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("MEDVAULT_DB_FILENAME"); v != "" {
		cfg.DBFilename = v
	}
	return nil
}

// LoadYAML reads and merges a YAML config file into cfg, the same
// from_yaml shape the original Python SecurityConfig exposed.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: load yaml: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}
	return nil
}

// ToYAML serializes cfg back to YAML bytes.
func ToYAML(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
