package vault

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/forest6511/locbox/pkg/container"
	"github.com/forest6511/locbox/pkg/crypto"
	"github.com/forest6511/locbox/pkg/filestore"
)

// Outcome says how Load produced its collection.
type Outcome int

const (
	// OutcomeLoaded: an encrypted container was opened.
	OutcomeLoaded Outcome = iota
	// OutcomeLegacy: the file was the unencrypted bare format.
	OutcomeLegacy
	// OutcomeEmptyDefault: nothing usable was stored; the collection is new.
	OutcomeEmptyDefault
)

// String returns a human-readable representation of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeLegacy:
		return "legacy"
	case OutcomeEmptyDefault:
		return "empty"
	default:
		return "unknown"
	}
}

// LoadResult is a successfully materialized collection and where it came from.
// A wrong passphrase is never a LoadResult; it is ErrWrongPassphraseOrCorrupt.
type LoadResult struct {
	Collection *Collection
	Outcome    Outcome
	// Cost holds the KDF parameters of the opened container (OutcomeLoaded only).
	Cost crypto.CostParams
}

// LoadOptions configures Load. The zero value is usable.
type LoadOptions struct {
	// Logger receives fallback warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

func (o *LoadOptions) logger() *slog.Logger {
	if o == nil || o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Load turns store bytes into a collection.
//
// A nil passphrase selects the unencrypted mode: a legacy file loads, an
// encrypted one fails with ErrPassphraseRequired. The passphrase is not
// retained or modified; the caller owns wiping it.
//
// Order of attempts:
//  1. empty input yields an empty collection (first use);
//  2. a container is decrypted, and authentication failure is returned as
//     ErrWrongPassphraseOrCorrupt;
//  3. anything that is not a container is parsed as the legacy bare format;
//  4. input that is neither yields an empty collection with a warning.
func Load(raw, passphrase []byte, opts *LoadOptions) (*LoadResult, error) {
	log := opts.logger()

	if len(bytes.TrimSpace(raw)) == 0 {
		log.Debug("store is empty, starting new collection")
		return emptyResult(), nil
	}

	c, err := container.Decode(raw)
	if err == nil {
		return openContainer(c, passphrase, log)
	}
	if !errors.Is(err, container.ErrNotContainer) {
		return nil, fmt.Errorf("%w: %w", ErrCorruptContainer, err)
	}

	coll, legacyErr := ParseCollection(raw)
	if legacyErr == nil {
		if passphrase != nil {
			log.Warn("store is unencrypted legacy format; it will be encrypted on next save")
		}
		log.Debug("loaded legacy store", "records", coll.Len(), "next_id", coll.NextID())
		return &LoadResult{Collection: coll, Outcome: OutcomeLegacy}, nil
	}

	log.Warn("store is neither a container nor a legacy collection, starting new collection",
		"container_error", err, "legacy_error", legacyErr)
	return emptyResult(), nil
}

func openContainer(c *container.Container, passphrase []byte, log *slog.Logger) (*LoadResult, error) {
	if passphrase == nil {
		return nil, ErrPassphraseRequired
	}

	key, err := crypto.DeriveKey(passphrase, c.Salt, c.Cost)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to derive key: %w", err)
	}
	defer crypto.ReleaseKey(key)

	plaintext, err := crypto.Open(key, c.Blob)
	if err != nil {
		if errors.Is(err, crypto.ErrAuthenticationFailed) {
			return nil, fmt.Errorf("%w: %w", ErrWrongPassphraseOrCorrupt, err)
		}
		return nil, fmt.Errorf("vault: failed to decrypt store: %w", err)
	}
	defer crypto.SecureWipe(plaintext)

	coll, err := ParseCollection(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}

	log.Debug("loaded encrypted store", "records", coll.Len(), "kdf_iterations", c.Cost.Iterations, "kdf_memory_kib", c.Cost.MemoryKiB)
	return &LoadResult{Collection: coll, Outcome: OutcomeLoaded, Cost: c.Cost}, nil
}

func emptyResult() *LoadResult {
	return &LoadResult{Collection: NewCollection(), Outcome: OutcomeEmptyDefault}
}

// LoadFile reads path and loads it. A missing file is the empty default.
func LoadFile(path string, passphrase []byte, opts *LoadOptions) (*LoadResult, error) {
	raw, err := filestore.Read(path)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			opts.logger().Debug("store file does not exist, starting new collection", "path", path)
			return emptyResult(), nil
		}
		return nil, err
	}
	return Load(raw, passphrase, opts)
}
