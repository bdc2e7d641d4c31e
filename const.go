package medvault

import "time"

// Defaults and clamps mirrored from the configuration table; internal/config
// applies these same floors when loading a Config from environment/YAML.
const (
	DefaultAlgorithm = "AES-256-GCM"

	MinPBKDF2Iterations     = 100000
	DefaultPBKDF2Iterations = 600000
	MinPBKDF2KeyLength      = 32
	DefaultPBKDF2KeyLength  = 32

	DefaultSessionExpiry = 8 * time.Hour
	DefaultKeyRotation   = 90 * 24 * time.Hour
	DefaultAuditRetain   = 365 * 24 * time.Hour

	DefaultNonceLength    = 12
	DefaultMaxLogEntries  = 10000
	DefaultSaltLength     = 32
)
