package vault

import "errors"

// Errors
var (
	// ErrWrongPassphraseOrCorrupt means the container could not be
	// authenticated: the passphrase is wrong or the file was tampered with.
	// It wraps crypto.ErrAuthenticationFailed.
	ErrWrongPassphraseOrCorrupt = errors.New("vault: wrong passphrase or corrupted store")

	// ErrPassphraseRequired means an encrypted store was loaded without a passphrase.
	ErrPassphraseRequired = errors.New("vault: store is encrypted, passphrase required")

	// ErrCorruptContainer means the file has container fields but they are
	// missing or undecodable. It wraps the *container.ParseError.
	ErrCorruptContainer = errors.New("vault: store container is corrupted")

	// ErrCorruptPayload means the authenticated plaintext is not a collection.
	ErrCorruptPayload = errors.New("vault: decrypted store is not a valid collection")

	// ErrMalformedCollection means a bare-format document is structurally invalid.
	ErrMalformedCollection = errors.New("vault: malformed collection")

	// ErrIDsExhausted means next_id reached the largest representable id.
	ErrIDsExhausted = errors.New("vault: record id space exhausted")
)
