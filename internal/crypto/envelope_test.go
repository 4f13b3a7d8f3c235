// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-health-vault/models"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := NewKeyChain().GenerateKey()
	require.NoError(t, err)
	return key
}

// ── Seal / Open ──────────────────────────────────────────────────────────────

func TestEnvelopeCodec_SealOpen_RoundTrip(t *testing.T) {
	codec := NewEnvelopeCodec()
	key := testKey(t)

	plaintext := []byte(`{"type":"weight","value":81.4,"unit":"kg"}`)

	raw, err := codec.Seal(plaintext, key)
	require.NoError(t, err)

	// The sealed form never contains the plaintext
	assert.NotContains(t, raw, "81.4")
	assert.NotContains(t, raw, "weight")

	got, ok := codec.Open(raw, key)
	require.True(t, ok)
	assert.Equal(t, plaintext, got)
}

func TestEnvelopeCodec_Seal_WireShape(t *testing.T) {
	codec := NewEnvelopeCodec()
	raw, err := codec.Seal([]byte("x"), testKey(t))
	require.NoError(t, err)

	var env models.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, models.AlgorithmAES256GCM, env.Version)

	blob, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	require.NoError(t, err)
	// nonce (12) + ciphertext (1) + tag (16)
	assert.Len(t, blob, 12+1+16)
}

func TestEnvelopeCodec_Seal_NonceUnique(t *testing.T) {
	codec := NewEnvelopeCodec()
	key := testKey(t)

	first, err := codec.Seal([]byte("same"), key)
	require.NoError(t, err)
	second, err := codec.Seal([]byte("same"), key)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same plaintext must seal to different ciphertexts")
}

func TestEnvelopeCodec_Open_WrongKey(t *testing.T) {
	codec := NewEnvelopeCodec()

	raw, err := codec.Seal([]byte("secret"), testKey(t))
	require.NoError(t, err)

	got, ok := codec.Open(raw, testKey(t))
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestEnvelopeCodec_Open_Tampered(t *testing.T) {
	codec := NewEnvelopeCodec()
	key := testKey(t)

	raw, err := codec.Seal([]byte("secret"), key)
	require.NoError(t, err)

	var env models.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	blob, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	require.NoError(t, err)

	// Flip one ciphertext bit; the auth tag must reject it.
	blob[len(blob)-1] ^= 0x01
	env.Ciphertext = base64.StdEncoding.EncodeToString(blob)
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, ok := codec.Open(string(tampered), key)
	assert.False(t, ok)
}

func TestEnvelopeCodec_Open_StructuralGarbage(t *testing.T) {
	codec := NewEnvelopeCodec()
	key := testKey(t)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not JSON", raw: "!!garbage!!"},
		{name: "bad base64", raw: `{"v":"aes256gcm","c":"%%%"}`},
		{name: "blob shorter than nonce", raw: `{"v":"aes256gcm","c":"` + base64.StdEncoding.EncodeToString([]byte("short")) + `"}`},
		{name: "wrong tag", raw: `{"v":"xchacha20","c":"AAAA"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := codec.Open(tt.raw, key)
			assert.False(t, ok)
		})
	}
}

// ── IsEnvelope ───────────────────────────────────────────────────────────────

func TestEnvelopeCodec_IsEnvelope_AcceptsSealed(t *testing.T) {
	codec := NewEnvelopeCodec()

	raw, err := codec.Seal([]byte(`{"a":1}`), testKey(t))
	require.NoError(t, err)

	assert.True(t, codec.IsEnvelope(raw))
}

func TestEnvelopeCodec_IsEnvelope_RejectsLookalikes(t *testing.T) {
	codec := NewEnvelopeCodec()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty string", raw: ""},
		{name: "not JSON at all", raw: "hello world"},
		{name: "bare JSON string", raw: `"aes256gcm"`},
		{name: "JSON array", raw: `["aes256gcm","AAAA"]`},
		{name: "object without fields", raw: `{"x":1}`},
		{name: "wrong version literal", raw: `{"v":"aes128gcm","c":"AAAA"}`},
		{name: "version only", raw: `{"v":"aes256gcm"}`},
		{name: "null ciphertext", raw: `{"v":"aes256gcm","c":null}`},
		{name: "numeric ciphertext", raw: `{"v":"aes256gcm","c":42}`},
		{name: "numeric version", raw: `{"v":1,"c":"AAAA"}`},
		{name: "unrelated v and c fields", raw: `{"v":"1.2.0","c":"config"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, codec.IsEnvelope(tt.raw))
		})
	}
}

func TestEnvelopeCodec_IsEnvelope_ExactTagSuffices(t *testing.T) {
	codec := NewEnvelopeCodec()

	// Extra fields do not disqualify an otherwise valid envelope; the tag
	// is the single discriminant.
	assert.True(t, codec.IsEnvelope(`{"v":"aes256gcm","c":"AAAA","extra":true}`))
	// Even an empty ciphertext string is structurally an envelope.
	assert.True(t, codec.IsEnvelope(`{"v":"aes256gcm","c":""}`))
}
