package substrate

import "context"

//go:generate mockgen -source=interfaces.go -destination=../mock/substrate_mock.go -package=mock

// Substrate is the durable local key-value store the vault and the sync
// queue are built on. Implementations must make single-key writes atomic;
// there is no cross-key transaction, and callers must not assume multi-key
// consistency.
type Substrate interface {
	// Get returns the value stored under key. Returns [ErrKeyNotFound]
	// when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, overwriting any previous value. The
	// write is durable before Set returns.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every stored key beginning with prefix, in unspecified
	// order. An empty prefix enumerates everything.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
