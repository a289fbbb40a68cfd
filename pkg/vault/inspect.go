package vault

import (
	"bytes"
	"errors"

	"github.com/forest6511/locbox/pkg/container"
	"github.com/forest6511/locbox/pkg/crypto"
)

// Format identifies the kind of store file without decrypting it.
type Format int

const (
	FormatEmpty Format = iota
	FormatEncrypted
	FormatLegacy
	FormatCorrupt
	FormatUnrecognized
)

// String returns a human-readable representation of the format
func (f Format) String() string {
	switch f {
	case FormatEmpty:
		return "empty"
	case FormatEncrypted:
		return "encrypted"
	case FormatLegacy:
		return "legacy plaintext"
	case FormatCorrupt:
		return "corrupted container"
	case FormatUnrecognized:
		return "unrecognized"
	default:
		return "unknown"
	}
}

// Info describes a store file as seen without the passphrase.
type Info struct {
	Format Format
	Cost   crypto.CostParams // FormatEncrypted only
	// Records is the record count, known only for FormatLegacy.
	Records int
}

// Inspect classifies raw store bytes the same way Load does.
func Inspect(raw []byte) Info {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Info{Format: FormatEmpty}
	}
	c, err := container.Decode(raw)
	if err == nil {
		return Info{Format: FormatEncrypted, Cost: c.Cost}
	}
	if !errors.Is(err, container.ErrNotContainer) {
		return Info{Format: FormatCorrupt}
	}
	if coll, err := ParseCollection(raw); err == nil {
		return Info{Format: FormatLegacy, Records: coll.Len()}
	}
	return Info{Format: FormatUnrecognized}
}
