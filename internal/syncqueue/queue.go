// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package syncqueue implements the durable, priority-ordered queue of
// pending outbound mutations. Items are persisted through the shared
// substrate before Enqueue acknowledges, survive restarts, and are replayed
// on reconnect or by the periodic drain job.
package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MKhiriev/go-health-vault/internal/logger"
	"github.com/MKhiriev/go-health-vault/internal/substrate"
	"github.com/MKhiriev/go-health-vault/internal/vault"
	"github.com/MKhiriev/go-health-vault/models"
)

// Queue records live in the vault's reserved namespace so they never leak
// into Keys() results or migration scans.
const (
	queueKeyPrefix = vault.ReservedNamespace + "queue."
	deadKeyPrefix  = vault.ReservedNamespace + "dead."
)

// Config holds the retry policy. Zero values fall back to the package
// defaults (budget 5, backoff 30s doubling up to 1h).
type Config struct {
	// MaxAttempts is the retry budget; once a failed item reaches it the
	// item moves to a dead-letter record.
	MaxAttempts uint32

	// BackoffBase is the delay before the second attempt; doubled on each
	// further failure.
	BackoffBase time.Duration

	// BackoffCap bounds the computed backoff.
	BackoffCap time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 30 * time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = time.Hour
	}
}

// Queue is the durable offline mutation queue. All state lives in the
// substrate; a Queue value itself holds only policy and the single-flight
// guard, so reconstructing one over the same substrate resumes exactly
// where the previous process stopped.
type Queue struct {
	substrate substrate.Substrate
	transport Transport
	cfg       Config
	logger    *logger.Logger

	// draining is the single-flight guard: interleaved drains could replay
	// or drop items inconsistently.
	draining atomic.Bool

	// now is swapped in tests to steer backoff timestamps.
	now func() time.Time

	mu           sync.RWMutex
	onDeadLetter func(models.QueueItem)
}

// NewQueue constructs a Queue over the shared substrate with the given
// replay transport and retry policy.
func NewQueue(sub substrate.Substrate, transport Transport, cfg Config, logger *logger.Logger) *Queue {
	cfg.applyDefaults()
	return &Queue{
		substrate: sub,
		transport: transport,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// OnDeadLetter registers the callback fired when an item exhausts its retry
// budget and is moved to a dead-letter record. The callback runs on the
// draining goroutine.
func (q *Queue) OnDeadLetter(fn func(models.QueueItem)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onDeadLetter = fn
}

// Enqueue appends a pending mutation. The item is durably persisted before
// Enqueue returns; a persistence failure means the item was not queued.
func (q *Queue) Enqueue(ctx context.Context, input models.QueueItemInput) (models.QueueItem, error) {
	if input.URL == "" || input.Method == "" {
		return models.QueueItem{}, fmt.Errorf("%w: url and method are required", ErrInvalidQueueItem)
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	item := models.QueueItem{
		ID:        uuid.NewString(),
		URL:       input.URL,
		Method:    input.Method,
		Headers:   input.Headers,
		Body:      input.Body,
		Priority:  priority,
		Kind:      input.Kind,
		CreatedAt: q.now(),
	}

	if err := q.persist(ctx, queueKeyPrefix, item); err != nil {
		return models.QueueItem{}, fmt.Errorf("persist queue item: %w", err)
	}

	q.logger.Debug().
		Str("id", item.ID).
		Str("kind", item.Kind).
		Str("priority", string(item.Priority)).
		Msg("queued outbound mutation")

	return item, nil
}

// Drain replays pending items through the transport, ordered High, Medium,
// Low and FIFO by creation time within a tier. Single-flight: a concurrent
// call returns [ErrDrainInProgress] immediately without starting a second
// pass. Context cancellation aborts between items, leaving the remainder
// durably queued.
func (q *Queue) Drain(ctx context.Context) (models.DrainResult, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return models.DrainResult{}, ErrDrainInProgress
	}
	defer q.draining.Store(false)

	items, err := q.load(ctx, queueKeyPrefix)
	if err != nil {
		return models.DrainResult{}, fmt.Errorf("load queue items: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Priority.Rank() != items[j].Priority.Rank() {
			return items[i].Priority.Rank() < items[j].Priority.Rank()
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})

	var result models.DrainResult
	for _, item := range items {
		select {
		case <-ctx.Done():
			result.Aborted = true
			return result, ctx.Err()
		default:
		}

		if item.NotBefore.After(q.now()) {
			result.Skipped++
			continue
		}

		if err = q.replayOne(ctx, item, &result); err != nil {
			return result, err
		}
	}

	q.logger.Info().
		Int("replayed", result.Replayed).
		Int("failed", result.Failed).
		Int("dead_lettered", result.DeadLettered).
		Int("skipped", result.Skipped).
		Msg("drain pass finished")

	return result, nil
}

func (q *Queue) replayOne(ctx context.Context, item models.QueueItem, result *models.DrainResult) error {
	replayErr := q.transport.Replay(ctx, item)
	if replayErr == nil {
		if err := q.substrate.Delete(ctx, queueKeyPrefix+item.ID); err != nil {
			return fmt.Errorf("remove replayed item %s: %w", item.ID, err)
		}
		result.Replayed++
		return nil
	}

	item.Attempts++
	item.LastError = replayErr.Error()

	q.logger.Warn().
		Str("id", item.ID).
		Uint32("attempts", item.Attempts).
		Str("error", item.LastError).
		Msg("replay failed")

	if item.Attempts >= q.cfg.MaxAttempts {
		return q.deadLetter(ctx, item, result)
	}

	item.NotBefore = q.now().Add(q.backoff(item.Attempts))
	if err := q.persist(ctx, queueKeyPrefix, item); err != nil {
		return fmt.Errorf("persist retry state for %s: %w", item.ID, err)
	}
	result.Failed++
	return nil
}

// deadLetter moves an exhausted item to its dead-letter record and emits
// the notification event. The item is never silently dropped: the record
// write happens before the queue entry is removed.
func (q *Queue) deadLetter(ctx context.Context, item models.QueueItem, result *models.DrainResult) error {
	if err := q.persist(ctx, deadKeyPrefix, item); err != nil {
		return fmt.Errorf("persist dead-letter record for %s: %w", item.ID, err)
	}
	if err := q.substrate.Delete(ctx, queueKeyPrefix+item.ID); err != nil {
		return fmt.Errorf("remove dead-lettered item %s: %w", item.ID, err)
	}
	result.DeadLettered++

	q.logger.Error().
		Str("id", item.ID).
		Str("kind", item.Kind).
		Str("last_error", item.LastError).
		Msg("item exhausted retry budget, moved to dead letters")

	q.mu.RLock()
	fn := q.onDeadLetter
	q.mu.RUnlock()
	if fn != nil {
		fn(item)
	}

	return nil
}

// backoff computes base * 2^(attempts-1), capped.
func (q *Queue) backoff(attempts uint32) time.Duration {
	if attempts == 0 {
		return 0
	}
	shift := attempts - 1
	if shift > 30 {
		return q.cfg.BackoffCap
	}
	d := q.cfg.BackoffBase << shift
	if d <= 0 || d > q.cfg.BackoffCap {
		return q.cfg.BackoffCap
	}
	return d
}

// PendingCount returns the number of items awaiting replay.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	keys, err := q.substrate.Keys(ctx, queueKeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("count queue items: %w", err)
	}
	return len(keys), nil
}

// DeadLetters returns the retained dead-letter records for host inspection.
func (q *Queue) DeadLetters(ctx context.Context) ([]models.QueueItem, error) {
	return q.load(ctx, deadKeyPrefix)
}

// Clear removes every pending item and dead-letter record. Used by the
// kill-switch wipe; best-effort in the same way (first error is returned
// after all deletions were attempted).
func (q *Queue) Clear(ctx context.Context) error {
	var firstErr error
	for _, prefix := range []string{queueKeyPrefix, deadKeyPrefix} {
		keys, err := q.substrate.Keys(ctx, prefix)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, key := range keys {
			if err = q.substrate.Delete(ctx, key); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (q *Queue) persist(ctx context.Context, prefix string, item models.QueueItem) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode queue item: %w", err)
	}
	return q.substrate.Set(ctx, prefix+item.ID, string(payload))
}

func (q *Queue) load(ctx context.Context, prefix string) ([]models.QueueItem, error) {
	keys, err := q.substrate.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	items := make([]models.QueueItem, 0, len(keys))
	for _, key := range keys {
		raw, err := q.substrate.Get(ctx, key)
		if err != nil {
			// Deleted between enumeration and read; nothing to do.
			continue
		}
		var item models.QueueItem
		if err = json.Unmarshal([]byte(raw), &item); err != nil {
			q.logger.Warn().
				Str("key", key).
				Msg("skipping undecodable queue record")
			continue
		}
		items = append(items, item)
	}

	return items, nil
}
