// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "time"

// Policy defaults applied for settings the host leaves unspecified. The
// kill-switch threshold and the retry curve are deliberately configuration,
// not code: the only fixed behavior is that they exist.
const (
	DefaultKillSwitchThreshold = 3
	DefaultRequestTimeout      = 15 * time.Second
	DefaultMaxAttempts         = 5
	DefaultBackoffBase         = 30 * time.Second
	DefaultBackoffCap          = time.Hour
	DefaultOnlineCooldown      = 2 * time.Second
	DefaultDrainInterval       = 5 * time.Minute
)

func (cfg *StructuredConfig) applyDefaults() {
	if cfg.Vault.KillSwitchThreshold == 0 {
		cfg.Vault.KillSwitchThreshold = DefaultKillSwitchThreshold
	}
	if cfg.Sync.RequestTimeout == 0 {
		cfg.Sync.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Sync.MaxAttempts == 0 {
		cfg.Sync.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Sync.BackoffBase == 0 {
		cfg.Sync.BackoffBase = DefaultBackoffBase
	}
	if cfg.Sync.BackoffCap == 0 {
		cfg.Sync.BackoffCap = DefaultBackoffCap
	}
	if cfg.Sync.OnlineCooldown == 0 {
		cfg.Sync.OnlineCooldown = DefaultOnlineCooldown
	}
	if cfg.Workers.DrainInterval == 0 {
		cfg.Workers.DrainInterval = DefaultDrainInterval
	}
}

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or a sentinel error otherwise.
func (cfg *StructuredConfig) validate() error {
	if cfg.Vault.KillSwitchThreshold < 0 {
		return ErrInvalidVaultConfigs
	}

	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Sync.RequestTimeout <= 0 || cfg.Sync.BackoffCap < cfg.Sync.BackoffBase {
		return ErrInvalidSyncConfigs
	}

	return nil
}
