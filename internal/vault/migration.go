// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package vault

import (
	"context"
	"strings"

	"github.com/MKhiriev/go-health-vault/internal/logger"
	"github.com/MKhiriev/go-health-vault/models"
)

// MigrationService upgrades legacy plaintext entries into encrypted
// envelopes. A migration pass is idempotent: every migrated entry satisfies
// the envelope check, so a second scan finds nothing to do.
type MigrationService struct {
	vault  *Vault
	logger *logger.Logger
}

// NewMigrationService constructs a MigrationService over the given vault.
func NewMigrationService(v *Vault, logger *logger.Logger) *MigrationService {
	return &MigrationService{vault: v, logger: logger}
}

// CollectLegacyItems enumerates the vault namespace, excludes reserved
// internals and values already stored as envelopes, and returns the
// remainder with their values read through the vault's normal fail-soft
// path so structured data round-trips correctly.
//
// The heuristic fails closed toward "needs migration": an object carrying
// unrelated fields, or a value malformed enough not to parse at all, is
// legacy. Only the exact envelope tag marks a value as already encrypted.
func (m *MigrationService) CollectLegacyItems(ctx context.Context) ([]models.LegacyItem, error) {
	rawKeys, err := m.vault.substrate.Keys(ctx, Namespace)
	if err != nil {
		return nil, err
	}

	var items []models.LegacyItem
	for _, rawKey := range rawKeys {
		if strings.HasPrefix(rawKey, ReservedNamespace) {
			continue
		}

		raw, err := m.vault.substrate.Get(ctx, rawKey)
		if err != nil {
			// A vanished or unreadable key is not legacy work; the next
			// pass sees it again if it matters.
			m.logger.Warn().
				Str("func", "MigrationService.CollectLegacyItems").
				Str("key", rawKey).
				Msg("skipping unreadable substrate entry")
			continue
		}
		if m.vault.codec.IsEnvelope(raw) {
			continue
		}

		logicalKey := strings.TrimPrefix(rawKey, Namespace)

		var value any
		if !m.vault.Get(ctx, logicalKey, &value) {
			// Not valid JSON: keep the raw string so re-encryption
			// preserves the bytes instead of dropping them.
			value = raw
		}

		items = append(items, models.LegacyItem{Key: logicalKey, Value: value})
	}

	return items, nil
}

// RunMigration re-encrypts every collected item in place. A failed write
// counts as skipped and leaves the legacy plaintext untouched for a retry
// on a later run.
func (m *MigrationService) RunMigration(ctx context.Context, items []models.LegacyItem) models.MigrationResult {
	var result models.MigrationResult

	for _, item := range items {
		if err := m.vault.Set(ctx, item.Key, item.Value); err != nil {
			result.Skipped++
			m.logger.Err(err).
				Str("func", "MigrationService.RunMigration").
				Str("key", item.Key).
				Msg("failed to re-encrypt legacy entry, leaving plaintext in place")
			continue
		}
		result.Reencrypted++
	}

	m.logger.Info().
		Uint32("reencrypted", result.Reencrypted).
		Uint32("skipped", result.Skipped).
		Msg("migration pass finished")

	return result
}
