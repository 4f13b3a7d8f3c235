// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

// LegacyItem is a plaintext entry found during a migration scan, keyed by
// its logical (namespace-stripped) key. Value holds whatever the stored JSON
// decoded to, or the raw string when the stored bytes were not valid JSON.
type LegacyItem struct {
	Key   string
	Value any
}

// MigrationResult summarizes one re-encryption pass.
type MigrationResult struct {
	Reencrypted uint32
	Skipped     uint32
}

// WipeReport summarizes a kill-switch wipe.
type WipeReport struct {
	// Deleted counts vault keys removed.
	Deleted int

	// Failed lists vault keys whose deletion errored; they remain in the
	// substrate.
	Failed []string

	// EnumerationFailed is set when the keys under the vault namespace could
	// not be listed at all, so an unknown number of entries survived.
	EnumerationFailed bool

	// QueueCleared reports whether the sync queue was emptied.
	QueueCleared bool
}

// Complete reports whether the wipe left nothing behind.
func (r WipeReport) Complete() bool {
	return !r.EnumerationFailed && len(r.Failed) == 0 && r.QueueCleared
}
