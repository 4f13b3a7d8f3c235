// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// Measurement is a single recorded health reading: a weight, a blood
// pressure, a glucose level. The vault stores it encrypted; the type itself
// is an ordinary JSON document.
type Measurement struct {
	Type       string    `json:"type"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	RecordedAt time.Time `json:"recorded_at"`
	Note       string    `json:"note,omitempty"`
}

// MedicationIntake records that a dose of a medication was taken.
type MedicationIntake struct {
	Medication string    `json:"medication"`
	DoseMg     float64   `json:"dose_mg"`
	TakenAt    time.Time `json:"taken_at"`
	Skipped    bool      `json:"skipped,omitempty"`
}
