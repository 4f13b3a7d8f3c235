// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MKhiriev/go-health-vault/models"
)

// envelopeCodec is the private AES-256-GCM implementation of [EnvelopeCodec].
type envelopeCodec struct{}

// NewEnvelopeCodec constructs the [EnvelopeCodec] for the single supported
// algorithm, [models.AlgorithmAES256GCM].
func NewEnvelopeCodec() EnvelopeCodec {
	return &envelopeCodec{}
}

// envelopeProbe mirrors models.Envelope but keeps "c" as a pointer so that
// an object lacking the field can be told apart from one carrying an empty
// string. A non-string "c" or non-string "v" fails the unmarshal and is
// therefore classified as not-an-envelope.
type envelopeProbe struct {
	Version    string  `json:"v"`
	Ciphertext *string `json:"c"`
}

// Seal implements [EnvelopeCodec]. It encrypts plaintext with key using
// AES-256-GCM. A random 12-byte nonce is prepended to the ciphertext so the
// decryption side can locate it: blob = nonce ‖ ciphertext ‖ tag. The blob
// is base64-encoded into the "c" field of the envelope JSON.
func (e *envelopeCodec) Seal(plaintext, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	blob := gcm.Seal(nonce, nonce, plaintext, nil)

	env := models.Envelope{
		Version:    models.AlgorithmAES256GCM,
		Ciphertext: base64.StdEncoding.EncodeToString(blob),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	return string(raw), nil
}

// Open implements [EnvelopeCodec]. Every failure mode — raw is not an
// envelope, the base64 is corrupted, the blob is shorter than a nonce, the
// key is wrong, the authentication tag does not verify — returns (nil,
// false). Callers treat all of these identically to "key not found".
func (e *envelopeCodec) Open(raw string, key []byte) ([]byte, bool) {
	var probe envelopeProbe
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, false
	}
	if probe.Version != string(models.AlgorithmAES256GCM) || probe.Ciphertext == nil {
		return nil, false
	}

	blob, err := base64.StdEncoding.DecodeString(*probe.Ciphertext)
	if err != nil {
		return nil, false
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, false
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return nil, false
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, false
	}

	return plaintext, true
}

// IsEnvelope implements [EnvelopeCodec]. The version tag is the sole
// discriminant: an object that merely looks similar (wrong literal, numeric
// fields, missing "c") is not an envelope, and neither is anything that
// fails to parse as JSON at all.
func (e *envelopeCodec) IsEnvelope(raw string) bool {
	var probe envelopeProbe
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return false
	}
	return probe.Version == string(models.AlgorithmAES256GCM) && probe.Ciphertext != nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
