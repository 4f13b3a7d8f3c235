// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-vault/internal/config"
	"github.com/MKhiriev/go-health-vault/internal/connectivity"
	"github.com/MKhiriev/go-health-vault/internal/crypto"
	"github.com/MKhiriev/go-health-vault/internal/logger"
	"github.com/MKhiriev/go-health-vault/internal/substrate"
	"github.com/MKhiriev/go-health-vault/internal/syncqueue"
	"github.com/MKhiriev/go-health-vault/internal/vault"
	"github.com/MKhiriev/go-health-vault/models"
)

// flakySubstrate fails reads of one key a set number of times, simulating a
// transient lock on the database file while writes still go through.
type flakySubstrate struct {
	substrate.Substrate
	failKey  string
	failures int
}

func (f *flakySubstrate) Get(ctx context.Context, key string) (string, error) {
	if key == f.failKey && f.failures > 0 {
		f.failures--
		return "", substrate.ErrSubstrateUnavailable
	}
	return f.Substrate.Get(ctx, key)
}

// newUnlockApp wires an App over an in-memory substrate, skipping the SQLite
// bootstrap so the unlock flow can be exercised in isolation. Reconstructing
// over the same substrate simulates a process restart.
func newUnlockApp(t *testing.T, sub substrate.Substrate, threshold int) *App {
	t.Helper()

	log := logger.Nop()
	codec := crypto.NewEnvelopeCodec()
	v := vault.New(sub, codec, log)

	cfg := &config.StructuredConfig{}
	cfg.Vault.KillSwitchThreshold = threshold

	killSwitch := vault.NewKillSwitch(sub, v, nil, threshold, log)
	killSwitch.Arm(context.Background())

	return &App{
		cfg:        cfg,
		logger:     log,
		substrate:  sub,
		keychain:   crypto.NewKeyChain(),
		codec:      codec,
		vault:      v,
		migration:  vault.NewMigrationService(v, log),
		killSwitch: killSwitch,
	}
}

func TestUnlock_FirstRunInitializes(t *testing.T) {
	ctx := context.Background()
	sub := substrate.NewMemorySubstrate()
	app := newUnlockApp(t, sub, 3)

	require.NoError(t, app.Unlock(ctx, "passphrase"))

	// Salt is persisted plaintext, the canary as a sealed envelope.
	_, err := sub.Get(ctx, saltKey)
	require.NoError(t, err)
	rawCanary, err := sub.Get(ctx, canaryKey)
	require.NoError(t, err)
	assert.True(t, crypto.NewEnvelopeCodec().IsEnvelope(rawCanary))

	// The vault is usable immediately after first-run initialization.
	require.NoError(t, app.Vault().Set(ctx, "profile", "x"))
}

func TestUnlock_CorrectPassphraseAfterRestart(t *testing.T) {
	ctx := context.Background()
	sub := substrate.NewMemorySubstrate()

	intake := models.MedicationIntake{
		Medication: "metformin",
		DoseMg:     500,
		TakenAt:    time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC),
	}

	app := newUnlockApp(t, sub, 3)
	require.NoError(t, app.Unlock(ctx, "passphrase"))
	require.NoError(t, app.Vault().Set(ctx, "medications.latest", intake))

	// Restart: a fresh App over the same substrate.
	restarted := newUnlockApp(t, sub, 3)
	require.NoError(t, restarted.Unlock(ctx, "passphrase"))

	var got models.MedicationIntake
	require.True(t, restarted.Vault().Get(ctx, "medications.latest", &got))
	assert.Equal(t, intake, got)
}

func TestUnlock_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	sub := substrate.NewMemorySubstrate()

	app := newUnlockApp(t, sub, 3)
	require.NoError(t, app.Unlock(ctx, "right"))

	restarted := newUnlockApp(t, sub, 3)
	err := restarted.Unlock(ctx, "wrong")
	assert.ErrorIs(t, err, ErrUnlockFailed)
	assert.Equal(t, 1, restarted.KillSwitch().FailedAttempts(ctx))

	// Data sealed with the real key is untouched by a failed attempt.
	recovered := newUnlockApp(t, sub, 3)
	require.NoError(t, recovered.Unlock(ctx, "right"))
	assert.Zero(t, recovered.KillSwitch().FailedAttempts(ctx), "success resets the streak")
}

func TestUnlock_ThresholdWipes(t *testing.T) {
	ctx := context.Background()
	sub := substrate.NewMemorySubstrate()

	app := newUnlockApp(t, sub, 2)
	require.NoError(t, app.Unlock(ctx, "right"))
	require.NoError(t, app.Vault().Set(ctx, "profile", "Anna"))

	attacker := newUnlockApp(t, sub, 2)
	assert.ErrorIs(t, attacker.Unlock(ctx, "guess-1"), ErrUnlockFailed)
	assert.ErrorIs(t, attacker.Unlock(ctx, "guess-2"), ErrVaultWiped)

	// All vault data is gone.
	keys, err := app.Vault().Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// The wipe rearms the switch: the owner can start over.
	assert.False(t, attacker.KillSwitch().IsTripped())
	assert.Zero(t, attacker.KillSwitch().FailedAttempts(ctx))
}

func TestUnlock_TransientSaltReadFailureIsNotFirstRun(t *testing.T) {
	ctx := context.Background()
	sub := substrate.NewMemorySubstrate()

	app := newUnlockApp(t, sub, 3)
	require.NoError(t, app.Unlock(ctx, "passphrase"))
	require.NoError(t, app.Vault().Set(ctx, "prefs", "dark"))

	saltBefore, err := sub.Get(ctx, saltKey)
	require.NoError(t, err)

	// A read hiccup on restart must surface as an error, not re-initialize
	// over the persisted salt.
	flaky := &flakySubstrate{Substrate: sub, failKey: saltKey, failures: 1}
	restarted := newUnlockApp(t, flaky, 3)
	err = restarted.Unlock(ctx, "passphrase")
	require.Error(t, err)
	assert.ErrorIs(t, err, substrate.ErrSubstrateUnavailable)

	saltAfter, err := sub.Get(ctx, saltKey)
	require.NoError(t, err)
	assert.Equal(t, saltBefore, saltAfter, "salt must survive a transient read failure")

	// The retry succeeds and sealed data is still readable.
	require.NoError(t, restarted.Unlock(ctx, "passphrase"))
	var got string
	require.True(t, restarted.Vault().Get(ctx, "prefs", &got))
	assert.Equal(t, "dark", got)
}

func TestUnlock_TransientCanaryReadFailureDoesNotReseal(t *testing.T) {
	ctx := context.Background()
	sub := substrate.NewMemorySubstrate()

	app := newUnlockApp(t, sub, 3)
	require.NoError(t, app.Unlock(ctx, "right"))

	canaryBefore, err := sub.Get(ctx, canaryKey)
	require.NoError(t, err)

	// A wrong passphrase during a canary read hiccup must neither reseal the
	// canary with the bad key nor count as a failed attempt.
	flaky := &flakySubstrate{Substrate: sub, failKey: canaryKey, failures: 1}
	intruder := newUnlockApp(t, flaky, 3)
	err = intruder.Unlock(ctx, "wrong")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnlockFailed)
	assert.ErrorIs(t, err, substrate.ErrSubstrateUnavailable)
	assert.Zero(t, intruder.KillSwitch().FailedAttempts(ctx))

	canaryAfter, err := sub.Get(ctx, canaryKey)
	require.NoError(t, err)
	assert.Equal(t, canaryBefore, canaryAfter)

	// The owner still unlocks once the substrate recovers.
	owner := newUnlockApp(t, sub, 3)
	require.NoError(t, owner.Unlock(ctx, "right"))
}

func TestUnlock_InterruptedInitializationReseals(t *testing.T) {
	ctx := context.Background()
	sub := substrate.NewMemorySubstrate()

	app := newUnlockApp(t, sub, 3)
	require.NoError(t, app.Unlock(ctx, "passphrase"))

	// Simulate a crash between salt and canary persistence.
	require.NoError(t, sub.Delete(ctx, canaryKey))

	restarted := newUnlockApp(t, sub, 3)
	require.NoError(t, restarted.Unlock(ctx, "passphrase"))

	rawCanary, err := sub.Get(ctx, canaryKey)
	require.NoError(t, err)
	assert.True(t, crypto.NewEnvelopeCodec().IsEnvelope(rawCanary))
}

// stallTransport blocks every replay until released, so a drain can be held
// in flight across a shutdown.
type stallTransport struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stallTransport) Replay(context.Context, models.QueueItem) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func TestRun_WaitsForReconnectDrainOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := substrate.NewMemorySubstrate()
	app := newUnlockApp(t, sub, 3)
	require.NoError(t, app.Unlock(ctx, "passphrase"))

	transport := &stallTransport{entered: make(chan struct{}), release: make(chan struct{})}
	app.queue = syncqueue.NewQueue(sub, transport, syncqueue.Config{MaxAttempts: 3}, logger.Nop())
	app.job = syncqueue.NewDrainJob(app.queue)
	app.monitor = connectivity.NewMonitor(false, 0, logger.Nop())
	app.cfg.Workers.DrainInterval = time.Hour

	_, err := app.Queue().Enqueue(ctx, models.QueueItemInput{
		URL:    "/v1/records",
		Method: "POST",
		Kind:   "record.create",
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	// Run subscribes asynchronously; toggle the link until the reconnect
	// drain actually reaches the transport.
wait:
	for {
		app.Monitor().Signal(true)
		select {
		case <-transport.entered:
			break wait
		case <-time.After(5 * time.Millisecond):
			app.Monitor().Signal(false)
		}
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Run returned while a reconnect drain was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(transport.release)
	select {
	case runErr := <-done:
		require.NoError(t, runErr)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after the in-flight drain finished")
	}
}
