// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package models holds the plain data types shared between the vault, queue
// and crypto packages: wire shapes, queue records and report structs. It
// carries no behavior beyond trivial accessors.
package models

// AlgorithmTag identifies the cipher suite a sealed envelope was produced
// with. Exactly one algorithm is supported; the tag exists so the stored
// form is self-describing and future suites can coexist with old data.
type AlgorithmTag string

// AlgorithmAES256GCM is the only supported envelope algorithm.
const AlgorithmAES256GCM AlgorithmTag = "aes256gcm"

// Envelope is the persisted form of an encrypted value. The field names are
// part of the storage format and must not change: existing vaults hold
// millions of these.
type Envelope struct {
	// Version is the algorithm tag, always [AlgorithmAES256GCM].
	Version AlgorithmTag `json:"v"`

	// Ciphertext is base64(nonce ‖ ciphertext ‖ auth tag).
	Ciphertext string `json:"c"`
}
