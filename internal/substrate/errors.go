package substrate

import "errors"

var (
	// ErrKeyNotFound is returned by Get when no value is stored under the
	// requested key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrSubstrateUnavailable wraps storage-layer failures (locked file,
	// exhausted quota, lost permissions). Callers classify with errors.Is.
	ErrSubstrateUnavailable = errors.New("substrate unavailable")
)
