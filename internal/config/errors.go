package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidVaultConfigs indicates invalid vault settings (for example,
	// an empty passphrase or a negative kill-switch threshold).
	ErrInvalidVaultConfigs = errors.New("invalid vault configuration")
	// ErrInvalidStorageConfigs indicates invalid substrate settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSyncConfigs indicates invalid replay/retry settings
	// (for example, a zero request timeout or backoff cap below the base).
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
)
