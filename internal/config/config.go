// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"
)

// StructuredConfig is the top-level configuration container for
// go-health-vault. It aggregates all sub-configurations and is populated by
// merging values from environment variables, command-line flags, and an
// optional JSON file.
//
// Struct tags:
//   - envPrefix — prefix applied to all nested env tag lookups (caarlos0/env).
//   - env       — direct environment variable name for scalar fields.
type StructuredConfig struct {
	// Vault holds encryption and kill-switch policy settings.
	Vault Vault `envPrefix:"VAULT_"`

	// Storage holds configuration for the local persistence substrate.
	Storage Storage `envPrefix:"STORAGE_"`

	// Sync holds the replay endpoint and retry/backoff policy for the
	// durable offline mutation queue.
	Sync Sync `envPrefix:"SYNC_"`

	// Workers holds configuration for background worker processes.
	Workers Workers `envPrefix:"WORKERS_"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables and flags.
	// Populated via the CONFIG environment variable or the -c / -config flag.
	JSONFilePath string `env:"CONFIG"`
}

// Vault holds the settings of the encrypted store and its unlock policy.
type Vault struct {
	// Passphrase is the user secret the AEAD key is derived from. Must be
	// kept confidential; it is consumed at startup and never persisted.
	// Env: VAULT_PASSPHRASE
	Passphrase string `env:"PASSPHRASE"`

	// KillSwitchThreshold is the number of consecutive failed unlock
	// attempts after which the vault is wiped. Zero disables nothing here;
	// the default of 3 is applied during validation.
	// Env: VAULT_KILL_SWITCH_THRESHOLD
	KillSwitchThreshold int `env:"KILL_SWITCH_THRESHOLD"`
}

// Storage groups the configuration of the persistence substrate.
type Storage struct {
	// DB holds the local SQLite settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the local SQLite substrate.
type DB struct {
	// DSN is the SQLite database file path (e.g. "healthvault.db"), or
	// ":memory:" for an ephemeral store.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// Sync holds replay transport and retry policy for the offline queue.
type Sync struct {
	// Endpoint is the base URL replay requests are issued against when a
	// queued item carries a relative URL. Items with absolute URLs ignore it.
	// Env: SYNC_ENDPOINT
	Endpoint string `env:"ENDPOINT"`

	// RequestTimeout bounds a single replay call (e.g. "15s").
	// Env: SYNC_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// MaxAttempts is the retry budget of a queued item. Once exceeded the
	// item moves to a dead-letter record instead of being deleted.
	// Env: SYNC_MAX_ATTEMPTS
	MaxAttempts uint32 `env:"MAX_ATTEMPTS"`

	// BackoffBase is the delay before the second attempt; each further
	// failure doubles it (e.g. "30s").
	// Env: SYNC_BACKOFF_BASE
	BackoffBase time.Duration `env:"BACKOFF_BASE"`

	// BackoffCap is the upper bound on the computed backoff (e.g. "1h").
	// Env: SYNC_BACKOFF_CAP
	BackoffCap time.Duration `env:"BACKOFF_CAP"`

	// OnlineCooldown is the window in which repeated online signals are
	// collapsed into a single queue drain (e.g. "2s").
	// Env: SYNC_ONLINE_COOLDOWN
	OnlineCooldown time.Duration `env:"ONLINE_COOLDOWN"`
}

// Workers holds configuration for background worker processes.
type Workers struct {
	// DrainInterval defines how often the periodic drain job runs in
	// addition to reconnect-triggered drains.
	// Env: WORKERS_DRAIN_INTERVAL
	DrainInterval time.Duration `env:"DRAIN_INTERVAL"`
}

// GetStructuredConfig loads, merges, and validates the application
// configuration from all available sources in the following priority order
// (last source wins for non-zero fields):
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
//
// Returns a fully populated *StructuredConfig or an error if any source
// fails to load or the final config fails validation.
func GetStructuredConfig() (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags().
		withJSON().
		build()
}
