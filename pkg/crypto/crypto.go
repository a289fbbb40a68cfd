// Package crypto provides the cryptographic primitives behind locbox store files.
//
// This package implements Argon2id key derivation and AES-256-GCM
// authenticated encryption following OWASP recommendations.
//
// # Security Features
//
//   - Argon2id key derivation with per-file cost parameters (default 64MB, 3 iterations)
//   - AES-256-GCM authenticated encryption with the nonce embedded in the sealed blob
//   - Upper bounds on cost parameters so a hostile file cannot exhaust the host
//   - Secure memory wiping and best-effort page locking for key material
//
// # Example Usage
//
//	salt, err := crypto.GenerateSalt()
//	key, err := crypto.DeriveKey(passphrase, salt, crypto.DefaultCostParams())
//	defer crypto.ReleaseKey(key)
//
//	blob, err := crypto.Seal(key, plaintext)
//	plaintext, err := crypto.Open(key, blob)
package crypto

import (
	"errors"
	"runtime"
)

const (
	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// TagLength is the length of the GCM authentication tag in bytes.
	TagLength = 16

	// SaltLength is the length of KDF salts in bytes (128 bits).
	SaltLength = 16
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrAuthenticationFailed indicates the sealed blob could not be authenticated:
	// wrong key, truncation or tampering.
	ErrAuthenticationFailed = errors.New("crypto: authentication failed, wrong key or corrupted data")

	// ErrDerivation is matched by every *DerivationError.
	ErrDerivation = errors.New("crypto: key derivation failed")
)

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}

// ReleaseKey wipes a key returned by DeriveKey and unpins its memory.
func ReleaseKey(key []byte) {
	SecureWipe(key)
	_ = unlockMemory(key)
}
