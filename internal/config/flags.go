package config

import (
	"flag"
	"time"
)

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-d database file path (SQLite DSN)
//	-c/-config json file path with configs
//	-passphrase vault passphrase
//	-kill-switch-threshold failed unlocks before wipe
//	-sync-endpoint replay endpoint base URL
//	-request-timeout replay request timeout (e.g., "15s")
//	-max-attempts replay retry budget
//	-backoff-base initial retry backoff (e.g., "30s")
//	-backoff-cap retry backoff upper bound (e.g., "1h")
//	-online-cooldown reconnect signal collapse window (e.g., "2s")
//	-drain-interval periodic drain job interval (e.g., "5m")
func ParseFlags() *StructuredConfig {
	var databaseDSN string
	var jsonConfigPath string
	var passphrase string
	var killSwitchThreshold int
	var syncEndpoint string
	var requestTimeout time.Duration
	var maxAttempts uint
	var backoffBase time.Duration
	var backoffCap time.Duration
	var onlineCooldown time.Duration
	var drainInterval time.Duration

	flag.StringVar(&databaseDSN, "d", "", "Database file path")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&passphrase, "passphrase", "", "Vault passphrase")
	flag.IntVar(&killSwitchThreshold, "kill-switch-threshold", 0, "Failed unlocks before wipe")
	flag.StringVar(&syncEndpoint, "sync-endpoint", "", "Replay endpoint base URL")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Replay request timeout (e.g., 15s)")
	flag.UintVar(&maxAttempts, "max-attempts", 0, "Replay retry budget")
	flag.DurationVar(&backoffBase, "backoff-base", 0, "Initial retry backoff (e.g., 30s)")
	flag.DurationVar(&backoffCap, "backoff-cap", 0, "Retry backoff upper bound (e.g., 1h)")
	flag.DurationVar(&onlineCooldown, "online-cooldown", 0, "Online signal collapse window (e.g., 2s)")
	flag.DurationVar(&drainInterval, "drain-interval", 0, "Periodic drain interval (e.g., 5m)")

	flag.Parse()

	return &StructuredConfig{
		Vault: Vault{
			Passphrase:          passphrase,
			KillSwitchThreshold: killSwitchThreshold,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
		},
		Sync: Sync{
			Endpoint:       syncEndpoint,
			RequestTimeout: requestTimeout,
			MaxAttempts:    uint32(maxAttempts),
			BackoffBase:    backoffBase,
			BackoffCap:     backoffCap,
			OnlineCooldown: onlineCooldown,
		},
		Workers: Workers{
			DrainInterval: drainInterval,
		},
		JSONFilePath: jsonConfigPath,
	}
}
