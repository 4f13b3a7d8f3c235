package syncqueue

import "errors"

var (
	// ErrDrainInProgress is returned by Drain when another drain already
	// holds the single-flight guard. The call is a no-op.
	ErrDrainInProgress = errors.New("drain already in progress")

	// ErrReplayRejected wraps a non-2xx response from the replay target.
	ErrReplayRejected = errors.New("replay rejected by server")

	// ErrInvalidQueueItem is returned by Enqueue when the input lacks a
	// URL or method.
	ErrInvalidQueueItem = errors.New("invalid queue item")
)
