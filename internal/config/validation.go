package config

import "fmt"

// Validator checks a Config for internal consistency, clamping the two
// values the original SecurityConfig clamps rather than rejecting them:
// pbkdf2_iterations has a 100,000 floor, pbkdf2_key_length has a 32-byte
// floor.
type Validator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks cfg, clamping iteration count and key length up to
// their floors in place, and rejecting anything that can't be repaired
// by clamping.
func (v *Validator) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: cannot be nil")
	}

	if cfg.PBKDF2Iterations < 100000 {
		cfg.PBKDF2Iterations = 100000
	}
	if cfg.PBKDF2KeyLength < 32 {
		cfg.PBKDF2KeyLength = 32
	}

	if cfg.SessionExpiryHours <= 0 {
		return fmt.Errorf("config: session_expiry_hours must be positive, got %d", cfg.SessionExpiryHours)
	}
	if cfg.KeyRotationDays <= 0 {
		return fmt.Errorf("config: key_rotation_days must be positive, got %d", cfg.KeyRotationDays)
	}
	if cfg.AuditRetentionDays <= 0 {
		return fmt.Errorf("config: audit_retention_days must be positive, got %d", cfg.AuditRetentionDays)
	}
	if cfg.NonceLength < 12 {
		return fmt.Errorf("config: nonce_length too small: minimum 12 bytes, got %d", cfg.NonceLength)
	}
	if cfg.MaxLogEntries <= 0 {
		return fmt.Errorf("config: max_log_entries must be positive, got %d", cfg.MaxLogEntries)
	}

	switch cfg.DefaultAlgorithm {
	case "AES-256-GCM", "AES-128-GCM":
	default:
		return fmt.Errorf("config: unsupported default_algorithm %q", cfg.DefaultAlgorithm)
	}

	if err := v.validateDatabaseConfig(cfg.DBPath, cfg.DBFilename); err != nil {
		return fmt.Errorf("config: database configuration invalid: %w", err)
	}

	return nil
}

func (v *Validator) validateDatabaseConfig(dbPath, dbFilename string) error {
	if dbPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}
	if dbFilename == "" {
		return fmt.Errorf("db_filename cannot be empty")
	}
	return checkDirectoryWritable(dbPath)
}
