// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package vault implements the namespaced, optionally-encrypted key-value
// store at the core of go-health-vault, together with the legacy-plaintext
// migration service and the failed-unlock kill switch.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/MKhiriev/go-health-vault/internal/crypto"
	"github.com/MKhiriev/go-health-vault/internal/logger"
	"github.com/MKhiriev/go-health-vault/internal/substrate"
)

// Substrate key layout. The literals are load-bearing: the migration
// heuristic and the reserved-namespace exclusion both compare against them
// verbatim.
const (
	// Namespace prefixes every vault logical key in the substrate.
	Namespace = "healthvault."

	// ReservedNamespace marks keys the vault manages internally (queue
	// records, dead letters, the failed-unlock counter). They are excluded
	// from Keys() and from migration scans.
	ReservedNamespace = "healthvault.sys."
)

// Vault is the namespaced, optionally-encrypted key-value store. It owns
// the mapping from logical key to on-disk representation exclusively; the
// sync queue shares the substrate but never touches vault keys.
//
// One Vault value is constructed at application startup and passed by
// handle to consumers. Writes return explicit errors; reads are fail-soft
// and report only found/not-found, because vault data is advisory and
// local, not authoritative.
type Vault struct {
	substrate substrate.Substrate
	codec     crypto.EnvelopeCodec
	logger    *logger.Logger

	mu  sync.RWMutex
	key []byte

	// decryptFailures is a diagnostic counter: decryption failures are
	// surfaced to callers as "not found", never as errors.
	decryptFailures atomic.Uint64
}

// New constructs a Vault over the given substrate and envelope codec.
// Encrypted writes fail until SetEncryptionKey is called.
func New(sub substrate.Substrate, codec crypto.EnvelopeCodec, logger *logger.Logger) *Vault {
	return &Vault{substrate: sub, codec: codec, logger: logger}
}

// SetEncryptionKey stores the AEAD key used for all subsequent encrypted
// operations. Called once after the key manager has derived it.
func (v *Vault) SetEncryptionKey(key []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.key = key
}

func (v *Vault) encryptionKey() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.key
}

// SetOptions controls how Set stores a value.
type SetOptions struct {
	// Encrypt wraps the value in an envelope. Default true.
	Encrypt bool
}

// SetOption mutates SetOptions.
type SetOption func(*SetOptions)

// NoEncrypt stores the value as plaintext JSON. Intended for values that
// must stay readable without key material.
func NoEncrypt() SetOption {
	return func(o *SetOptions) { o.Encrypt = false }
}

// Set serializes value as JSON, seals it in an envelope unless NoEncrypt
// is given, and writes it under the namespaced key. A substrate rejection
// surfaces as a wrapped [ErrStorageUnavailable]; Set never panics past this
// boundary.
func (v *Vault) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	options := SetOptions{Encrypt: true}
	for _, opt := range opts {
		opt(&options)
	}

	plaintext, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", key, err)
	}

	stored := string(plaintext)
	if options.Encrypt {
		encKey := v.encryptionKey()
		if encKey == nil {
			return ErrNoEncryptionKey
		}
		stored, err = v.codec.Seal(plaintext, encKey)
		if err != nil {
			return fmt.Errorf("seal value for %q: %w", key, err)
		}
	}

	if err = v.substrate.Set(ctx, Namespace+key, stored); err != nil {
		v.logger.Err(err).
			Str("func", "Vault.Set").
			Str("key", key).
			Msg("substrate rejected vault write")
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return nil
}

// Get reads the namespaced key into target (a non-nil pointer, as for
// json.Unmarshal) and reports whether a value was decoded. Absence,
// decryption failure (wrong key, corruption) and parse failure all return
// false: the caller cannot distinguish them, by policy. Decryption failures
// additionally increment the diagnostic counter.
func (v *Vault) Get(ctx context.Context, key string, target any) bool {
	raw, err := v.substrate.Get(ctx, Namespace+key)
	if err != nil {
		return false
	}

	payload := []byte(raw)
	if v.codec.IsEnvelope(raw) {
		plaintext, ok := v.codec.Open(raw, v.encryptionKey())
		if !ok {
			v.decryptFailures.Add(1)
			v.logger.Warn().
				Str("func", "Vault.Get").
				Str("key", key).
				Msg("failed to open envelope, treating as absent")
			return false
		}
		payload = plaintext
	}

	if err = json.Unmarshal(payload, target); err != nil {
		v.logger.Warn().
			Str("func", "Vault.Get").
			Str("key", key).
			Msg("failed to decode stored value, treating as absent")
		return false
	}

	return true
}

// Remove deletes the namespaced key. Removing an absent key is not an
// error; substrate rejections surface as wrapped [ErrStorageUnavailable].
func (v *Vault) Remove(ctx context.Context, key string) error {
	if err := v.substrate.Delete(ctx, Namespace+key); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

// Keys returns the logical keys currently stored, namespace-stripped.
// Reserved vault-managed internals never appear in the result.
func (v *Vault) Keys(ctx context.Context) ([]string, error) {
	rawKeys, err := v.substrate.Keys(ctx, Namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	keys := make([]string, 0, len(rawKeys))
	for _, k := range rawKeys {
		if strings.HasPrefix(k, ReservedNamespace) {
			continue
		}
		keys = append(keys, strings.TrimPrefix(k, Namespace))
	}

	return keys, nil
}

// DecryptFailures returns the number of reads that found an envelope but
// failed to open it. Diagnostic only.
func (v *Vault) DecryptFailures() uint64 {
	return v.decryptFailures.Load()
}

// SafeJSON reads key like [Vault.Get] but returns def on any failure
// (absence, decryption failure, parse failure) instead of reporting it.
func SafeJSON[T any](ctx context.Context, v *Vault, key string, def T) T {
	var value T
	if !v.Get(ctx, key, &value) {
		return def
	}
	return value
}
