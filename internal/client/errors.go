package client

import "errors"

var (
	// ErrUnlockFailed is returned by Unlock when the derived key cannot
	// open the stored canary (wrong passphrase or corrupted key material).
	ErrUnlockFailed = errors.New("vault unlock failed")

	// ErrVaultWiped is returned by Unlock when the failed attempt crossed
	// the kill-switch threshold and the vault has been wiped.
	ErrVaultWiped = errors.New("vault wiped after repeated failed unlocks")
)
