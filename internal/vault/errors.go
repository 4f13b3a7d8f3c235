package vault

import "errors"

var (
	// ErrStorageUnavailable is returned by Set and Remove when the
	// substrate rejects the write (locked file, quota, permissions).
	// Reads never surface it: the read path is fail-soft.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNoEncryptionKey is returned by Set when encryption is requested
	// before SetEncryptionKey has been called.
	ErrNoEncryptionKey = errors.New("encryption key not set")
)
