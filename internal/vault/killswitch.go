// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package vault

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/MKhiriev/go-health-vault/internal/logger"
	"github.com/MKhiriev/go-health-vault/internal/substrate"
	"github.com/MKhiriev/go-health-vault/models"
)

// failedUnlocksKey persists the failed-unlock counter. It lives in the
// reserved namespace and is written as a bare integer directly through the
// substrate, so it stays readable even when the vault's key material is
// wrong or missing.
const failedUnlocksKey = ReservedNamespace + "guard.failed_unlocks"

// QueueClearer is the slice of the sync queue the kill switch needs: the
// ability to drop all pending mutations during a wipe.
type QueueClearer interface {
	Clear(ctx context.Context) error
}

// KillSwitch tracks consecutive failed unlock attempts and trips once the
// configured threshold is crossed. Tripping is one-way: only a completed
// wipe rearms the switch. Whether the policy is enabled at all belongs to a
// settings collaborator; the mechanics here are always available.
type KillSwitch struct {
	substrate substrate.Substrate
	vault     *Vault
	queue     QueueClearer
	threshold int
	logger    *logger.Logger

	mu      sync.Mutex
	tripped bool
}

// NewKillSwitch constructs a KillSwitch. A non-positive threshold falls
// back to 3, the long-observed default.
func NewKillSwitch(sub substrate.Substrate, v *Vault, queue QueueClearer, threshold int, logger *logger.Logger) *KillSwitch {
	if threshold <= 0 {
		threshold = 3
	}
	return &KillSwitch{
		substrate: sub,
		vault:     v,
		queue:     queue,
		threshold: threshold,
		logger:    logger,
	}
}

// Arm restores the tripped state from the persisted counter. Called once at
// startup so a trip survives a process restart between trip and wipe.
func (k *KillSwitch) Arm(ctx context.Context) {
	count := k.failedAttempts(ctx)

	k.mu.Lock()
	defer k.mu.Unlock()
	if count >= k.threshold {
		k.tripped = true
	}
}

// FailedAttempts returns the persisted failed-unlock count. Absent or
// unparsable state reads as zero.
func (k *KillSwitch) FailedAttempts(ctx context.Context) int {
	return k.failedAttempts(ctx)
}

func (k *KillSwitch) failedAttempts(ctx context.Context) int {
	raw, err := k.substrate.Get(ctx, failedUnlocksKey)
	if err != nil {
		return 0
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

// RecordFailure increments the persisted counter and trips the switch when
// the threshold is reached. Returns an error only when the counter itself
// cannot be persisted.
func (k *KillSwitch) RecordFailure(ctx context.Context) error {
	count := k.failedAttempts(ctx) + 1

	if err := k.substrate.Set(ctx, failedUnlocksKey, strconv.Itoa(count)); err != nil {
		return fmt.Errorf("persist failed-unlock counter: %w", err)
	}

	if count >= k.threshold {
		k.mu.Lock()
		k.tripped = true
		k.mu.Unlock()
		k.logger.Warn().
			Int("failed_attempts", count).
			Int("threshold", k.threshold).
			Msg("kill switch tripped")
	}

	return nil
}

// RecordSuccess resets the persisted counter to zero. It does not untrip an
// already-tripped switch.
func (k *KillSwitch) RecordSuccess(ctx context.Context) error {
	if err := k.substrate.Set(ctx, failedUnlocksKey, "0"); err != nil {
		return fmt.Errorf("reset failed-unlock counter: %w", err)
	}
	return nil
}

// IsTripped reports whether the threshold has been crossed since the last
// completed wipe.
func (k *KillSwitch) IsTripped() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tripped
}

// Wipe irreversibly deletes every vault logical key and clears the sync
// queue. Best-effort: a failed deletion is recorded in the report and the
// remaining keys are still attempted. Local-only; no network collaborator
// is ever called. On completion the switch rearms at zero.
func (k *KillSwitch) Wipe(ctx context.Context) models.WipeReport {
	report := models.WipeReport{QueueCleared: true}

	keys, err := k.vault.Keys(ctx)
	if err != nil {
		report.EnumerationFailed = true
		k.logger.Err(err).Str("func", "KillSwitch.Wipe").Msg("failed to enumerate vault keys")
	}
	for _, key := range keys {
		if err = k.vault.Remove(ctx, key); err != nil {
			report.Failed = append(report.Failed, key)
			k.logger.Err(err).
				Str("func", "KillSwitch.Wipe").
				Str("key", key).
				Msg("failed to delete vault key, continuing")
			continue
		}
		report.Deleted++
	}

	if k.queue != nil {
		if err = k.queue.Clear(ctx); err != nil {
			report.QueueCleared = false
			k.logger.Err(err).Str("func", "KillSwitch.Wipe").Msg("failed to clear sync queue")
		}
	}

	if err = k.RecordSuccess(ctx); err != nil {
		k.logger.Err(err).Str("func", "KillSwitch.Wipe").Msg("failed to rearm counter after wipe")
	}

	k.mu.Lock()
	k.tripped = false
	k.mu.Unlock()

	k.logger.Info().
		Int("deleted", report.Deleted).
		Int("failed", len(report.Failed)).
		Bool("queue_cleared", report.QueueCleared).
		Msg("vault wipe finished")

	return report
}
