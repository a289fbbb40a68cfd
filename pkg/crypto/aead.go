package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext using AES-256-GCM.
//
// A fresh random nonce is generated for every call and prepended to the
// ciphertext, so the blob is nonce || ciphertext || tag and Open needs only
// the key. No associated data is used.
func Seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	blob := make([]byte, NonceLength, NonceLength+len(plaintext)+gcm.Overhead())
	copy(blob, nonce)
	return gcm.Seal(blob, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts a blob produced by Seal.
//
// Any truncation, bit flip or wrong key yields ErrAuthenticationFailed and a
// nil plaintext.
func Open(key, blob []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(blob) < NonceLength+gcm.Overhead() {
		return nil, ErrAuthenticationFailed
	}

	nonce := blob[:NonceLength]
	plaintext, err := gcm.Open(nil, nonce, blob[NonceLength:], nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}
