package vault

import (
	"encoding/json"
	"fmt"

	"github.com/forest6511/locbox/pkg/container"
	"github.com/forest6511/locbox/pkg/crypto"
	"github.com/forest6511/locbox/pkg/filestore"
)

// SaveOptions configures SerializeForSave. The zero value is usable.
type SaveOptions struct {
	// Cost is the KDF cost for the new container. Zero uses crypto.DefaultCostParams().
	Cost crypto.CostParams
}

func (o *SaveOptions) cost() crypto.CostParams {
	if o == nil || o.Cost == (crypto.CostParams{}) {
		return crypto.DefaultCostParams()
	}
	return o.Cost
}

// SerializeForSave encodes the collection for writing.
//
// A nil passphrase writes the legacy bare format without encryption.
// Otherwise the whole collection is sealed under a key derived with a fresh
// salt and the configured cost, and wrapped in a container.
func SerializeForSave(c *Collection, passphrase []byte, opts *SaveOptions) ([]byte, error) {
	if passphrase == nil {
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("vault: failed to marshal collection: %w", err)
		}
		return append(data, '\n'), nil
	}

	cost := opts.cost()
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}

	key, err := crypto.DeriveKey(passphrase, salt, cost)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to derive key: %w", err)
	}
	defer crypto.ReleaseKey(key)

	plaintext, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to marshal collection: %w", err)
	}
	defer crypto.SecureWipe(plaintext)

	blob, err := crypto.Seal(key, plaintext)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to seal collection: %w", err)
	}

	return container.Encode(salt, cost, blob)
}

// SaveFile serializes the collection and atomically replaces path.
func SaveFile(path string, c *Collection, passphrase []byte, opts *SaveOptions) error {
	data, err := SerializeForSave(c, passphrase, opts)
	if err != nil {
		return err
	}
	return filestore.Write(path, data)
}
