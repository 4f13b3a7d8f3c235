// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"time"
)

// Priority orders queued mutations during a drain pass. Values are persisted
// as strings inside queue records.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to its sort order: smaller drains first. Unknown or
// empty values rank as medium so records written by a newer build still
// drain in a sensible place.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// QueueItemInput is the caller-supplied part of a queue record. ID, creation
// time and retry state are assigned by the queue.
type QueueItemInput struct {
	URL      string            `json:"url"`
	Method   string            `json:"method"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     json.RawMessage   `json:"body,omitempty"`
	Priority Priority          `json:"priority,omitempty"`

	// Kind labels the mutation for logs and dead-letter triage, e.g.
	// "measurement.create".
	Kind string `json:"kind,omitempty"`
}

// QueueItem is a durably persisted pending mutation. The JSON form is the
// storage format of both queue entries and dead-letter records.
type QueueItem struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      json.RawMessage   `json:"body,omitempty"`
	Priority  Priority          `json:"priority"`
	Kind      string            `json:"kind,omitempty"`
	CreatedAt time.Time         `json:"created_at"`

	// Attempts counts failed replays so far.
	Attempts uint32 `json:"attempts,omitempty"`

	// LastError is the message of the most recent failed replay.
	LastError string `json:"last_error,omitempty"`

	// NotBefore defers the next replay attempt; zero means immediately
	// eligible.
	NotBefore time.Time `json:"not_before,omitempty"`
}

// DrainResult summarizes one drain pass.
type DrainResult struct {
	// Replayed items were delivered and removed from the queue.
	Replayed int

	// Failed items stay queued with an increased attempt count.
	Failed int

	// DeadLettered items exhausted their retry budget this pass.
	DeadLettered int

	// Skipped items were still inside their backoff window.
	Skipped int

	// Aborted is set when the pass stopped early on context cancellation.
	Aborted bool
}
