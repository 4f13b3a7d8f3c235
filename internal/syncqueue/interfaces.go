package syncqueue

import (
	"context"
	"time"

	"github.com/MKhiriev/go-health-vault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/syncqueue_mock.go -package=mock

// Transport executes a single replay call for a queued mutation. The queue
// delivers at-least-once: a transport target must tolerate replays of the
// same item (idempotency is assumed and documented, not enforced here).
type Transport interface {
	// Replay issues the item's request. A nil return removes the item from
	// the queue; any error counts as a failed attempt.
	Replay(ctx context.Context, item models.QueueItem) error
}

// Drainer is the slice of the queue the background job and the connectivity
// monitor depend on.
type Drainer interface {
	Drain(ctx context.Context) (models.DrainResult, error)
}

// DrainJob is a background worker that drains the queue on a ticker, in
// addition to the reconnect-triggered drains.
type DrainJob interface {
	// Start launches the background goroutine draining every interval,
	// defaulting to 5 minutes if interval is zero or negative. Any
	// previously running job is stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the goroutine to exit and blocks until it has fully
	// terminated. An in-flight drain is aborted via context cancellation,
	// leaving unprocessed items durably queued.
	Stop()
}
