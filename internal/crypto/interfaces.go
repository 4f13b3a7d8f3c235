package crypto

// KeyChain is the key-provisioning contract consumed by the vault. The rest
// of the core only ever sees the opaque symmetric key bytes it returns.
type KeyChain interface {
	// GenerateSalt reads 16 random bytes from the OS CSPRNG for use as a
	// key-derivation salt. Returns an error if the random read fails.
	GenerateSalt() ([]byte, error)

	// GenerateKey reads 32 random bytes from the OS CSPRNG for use as a
	// standalone AEAD key. Returns an error if the random read fails.
	GenerateKey() ([]byte, error)

	// DeriveKey derives a 256-bit AEAD key from the user's passphrase and
	// salt using Argon2id. The result exists only in process memory.
	DeriveKey(passphrase string, salt []byte) []byte
}

// EnvelopeCodec encodes and decodes the tagged ciphertext format that makes
// encrypted values distinguishable from plaintext.
type EnvelopeCodec interface {
	// Seal encrypts plaintext with key and returns the serialized envelope:
	// {"v":"aes256gcm","c":"<base64 nonce‖ciphertext‖tag>"}.
	Seal(plaintext, key []byte) (string, error)

	// Open decodes an envelope produced by Seal and decrypts it with key.
	// The second return is false on any structural or cryptographic failure
	// (not an envelope, corrupted base64, wrong key, tag mismatch).
	Open(raw string, key []byte) ([]byte, bool)

	// IsEnvelope reports whether raw is a well-formed envelope: a JSON
	// object whose "v" field equals the supported algorithm literal and
	// whose "c" field is a string. Anything else, including values that
	// fail to parse at all, is not an envelope.
	IsEnvelope(raw string) bool
}
