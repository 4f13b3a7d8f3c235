// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client assembles the storage and synchronization core: one
// explicit dependency graph built at startup and torn down on shutdown,
// with no ambient global state in between.
package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/MKhiriev/go-health-vault/internal/config"
	"github.com/MKhiriev/go-health-vault/internal/connectivity"
	"github.com/MKhiriev/go-health-vault/internal/crypto"
	"github.com/MKhiriev/go-health-vault/internal/logger"
	"github.com/MKhiriev/go-health-vault/internal/substrate"
	"github.com/MKhiriev/go-health-vault/internal/syncqueue"
	"github.com/MKhiriev/go-health-vault/internal/vault"
	"github.com/MKhiriev/go-health-vault/models"
)

// Reserved guard keys. The salt must stay plaintext (it is the input to key
// derivation) and the canary is the sealed probe an unlock is verified
// against. Both live in the reserved namespace, invisible to consumers.
const (
	saltKey   = vault.ReservedNamespace + "guard.salt"
	canaryKey = vault.ReservedNamespace + "guard.canary"
)

// canaryPlaintext is an arbitrary constant; only its successful round-trip
// matters.
const canaryPlaintext = "healthvault-canary-v1"

// App owns the core's component graph and its lifecycle.
type App struct {
	cfg    *config.StructuredConfig
	logger *logger.Logger

	db        *substrate.DB
	substrate substrate.Substrate
	keychain  crypto.KeyChain
	codec     crypto.EnvelopeCodec

	vault      *vault.Vault
	migration  *vault.MigrationService
	killSwitch *vault.KillSwitch
	queue      *syncqueue.Queue
	job        syncqueue.DrainJob
	monitor    *connectivity.Monitor
}

// NewApp opens the substrate, applies schema migrations, and wires every
// component of the core. The vault stays locked until Unlock succeeds.
func NewApp(cfg *config.StructuredConfig, log *logger.Logger) (*App, error) {
	db, err := substrate.NewConnectSQLite(context.Background(), cfg.Storage.DB, log)
	if err != nil {
		return nil, fmt.Errorf("connect substrate: %w", err)
	}
	if err = db.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate substrate schema: %w", err)
	}

	sub := substrate.NewSQLiteSubstrate(db, log)
	codec := crypto.NewEnvelopeCodec()
	keychain := crypto.NewKeyChain()

	v := vault.New(sub, codec, log)

	transport := syncqueue.NewHTTPTransport(syncqueue.HTTPTransportConfig{
		BaseURL: cfg.Sync.Endpoint,
		Timeout: cfg.Sync.RequestTimeout,
	})
	queue := syncqueue.NewQueue(sub, transport, syncqueue.Config{
		MaxAttempts: cfg.Sync.MaxAttempts,
		BackoffBase: cfg.Sync.BackoffBase,
		BackoffCap:  cfg.Sync.BackoffCap,
	}, log)
	queue.OnDeadLetter(func(item models.QueueItem) {
		log.Error().
			Str("id", item.ID).
			Str("kind", item.Kind).
			Msg("mutation abandoned after retry budget, kept as dead letter")
	})

	killSwitch := vault.NewKillSwitch(sub, v, queue, cfg.Vault.KillSwitchThreshold, log)
	killSwitch.Arm(context.Background())

	return &App{
		cfg:        cfg,
		logger:     log,
		db:         db,
		substrate:  sub,
		keychain:   keychain,
		codec:      codec,
		vault:      v,
		migration:  vault.NewMigrationService(v, log),
		killSwitch: killSwitch,
		queue:      queue,
		job:        syncqueue.NewDrainJob(queue),
		monitor:    connectivity.NewMonitor(false, cfg.Sync.OnlineCooldown, log),
	}, nil
}

// Unlock derives the AEAD key from passphrase and verifies it against the
// sealed canary. On the first run the salt and canary are created instead.
// A wrong passphrase records a failed attempt; crossing the kill-switch
// threshold wipes the vault and returns [ErrVaultWiped].
func (a *App) Unlock(ctx context.Context, passphrase string) error {
	rawSalt, err := a.substrate.Get(ctx, saltKey)
	if errors.Is(err, substrate.ErrKeyNotFound) {
		return a.initialize(ctx, passphrase)
	}
	if err != nil {
		// A transient read failure must not look like a first run: falling
		// through to initialize would overwrite the salt and orphan every
		// existing envelope.
		return fmt.Errorf("read salt: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(rawSalt)
	if err != nil {
		return fmt.Errorf("decode stored salt: %w", err)
	}
	key := a.keychain.DeriveKey(passphrase, salt)

	rawCanary, err := a.substrate.Get(ctx, canaryKey)
	if errors.Is(err, substrate.ErrKeyNotFound) {
		// Salt without canary: interrupted initialization. Reseal.
		a.vault.SetEncryptionKey(key)
		return a.sealCanary(ctx, key)
	}
	if err != nil {
		// Resealing against an unverified candidate key would replace the
		// canary and dodge the failed-unlock counter.
		return fmt.Errorf("read canary: %w", err)
	}

	if _, ok := a.codec.Open(rawCanary, key); !ok {
		if recErr := a.killSwitch.RecordFailure(ctx); recErr != nil {
			a.logger.Err(recErr).Msg("failed to record unlock failure")
		}
		if a.killSwitch.IsTripped() {
			report := a.killSwitch.Wipe(ctx)
			a.logger.Warn().
				Int("deleted", report.Deleted).
				Bool("complete", report.Complete()).
				Msg("kill switch wiped vault")
			return ErrVaultWiped
		}
		return ErrUnlockFailed
	}

	a.vault.SetEncryptionKey(key)
	if err = a.killSwitch.RecordSuccess(ctx); err != nil {
		a.logger.Err(err).Msg("failed to reset unlock counter")
	}

	return nil
}

func (a *App) initialize(ctx context.Context, passphrase string) error {
	salt, err := a.keychain.GenerateSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	if err = a.substrate.Set(ctx, saltKey, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return fmt.Errorf("persist salt: %w", err)
	}

	key := a.keychain.DeriveKey(passphrase, salt)
	a.vault.SetEncryptionKey(key)

	return a.sealCanary(ctx, key)
}

func (a *App) sealCanary(ctx context.Context, key []byte) error {
	sealed, err := a.codec.Seal([]byte(canaryPlaintext), key)
	if err != nil {
		return fmt.Errorf("seal canary: %w", err)
	}
	if err = a.substrate.Set(ctx, canaryKey, sealed); err != nil {
		return fmt.Errorf("persist canary: %w", err)
	}
	return nil
}

// Run upgrades legacy plaintext entries, subscribes the queue drain to
// connectivity transitions, starts the periodic drain job, and blocks until
// ctx is cancelled. Teardown aborts any in-flight drain, leaving unprocessed
// items durably queued.
func (a *App) Run(ctx context.Context) error {
	items, err := a.migration.CollectLegacyItems(ctx)
	if err != nil {
		return fmt.Errorf("scan legacy entries: %w", err)
	}
	if len(items) > 0 {
		result := a.migration.RunMigration(ctx, items)
		a.logger.Info().
			Uint32("reencrypted", result.Reencrypted).
			Uint32("skipped", result.Skipped).
			Msg("legacy entries upgraded")
	}

	var drains sync.WaitGroup
	unsubscribe := a.monitor.OnOnline(func() {
		drains.Add(1)
		go func() {
			defer drains.Done()
			_, err := a.queue.Drain(ctx)
			if err != nil && !errors.Is(err, syncqueue.ErrDrainInProgress) && !errors.Is(err, context.Canceled) {
				a.logger.Err(err).Msg("reconnect drain failed")
			}
		}()
	})

	a.job.Start(ctx, a.cfg.Workers.DrainInterval)

	<-ctx.Done()
	a.logger.Info().Msg("shutting down, pending mutations remain queued")

	// Stop spawning drains, then wait for in-flight ones before the
	// substrate handle goes away underneath them.
	unsubscribe()
	a.job.Stop()
	drains.Wait()

	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Vault exposes the store to consumer code (settings, record screens).
func (a *App) Vault() *vault.Vault { return a.vault }

// Queue exposes the offline mutation queue to consumer code.
func (a *App) Queue() *syncqueue.Queue { return a.queue }

// Monitor exposes the connectivity monitor so the host's network-status
// source can feed transitions via Signal.
func (a *App) Monitor() *connectivity.Monitor { return a.monitor }

// KillSwitch exposes the unlock guard for the host's settings surface.
func (a *App) KillSwitch() *vault.KillSwitch { return a.killSwitch }
