// Package vault holds the locbox record collection and the load/save paths
// that move it between memory and the store file.
//
// The load path is filestore read, container decode, key derivation, AEAD
// open, then collection parse, with a fallback to the legacy unencrypted
// format. The save path runs the same steps in reverse. Every save draws a
// fresh salt.
package vault

import (
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Record is one stored credential. Records are immutable once added.
type Record struct {
	ID       uint64 `json:"id"`
	Service  string `json:"service"`
	Username string `json:"username"`
	Secret   string `json:"password"`
}

// Collection is the in-memory record set.
//
// nextID is always greater than every id ever issued, including ids of
// removed records, so ids are never reused. math.MaxUint64 is never issued.
//
// Service and username are held in Unicode NFC, both for added records and
// for records read from a file.
type Collection struct {
	nextID  uint64
	records []Record
}

// NewCollection returns an empty collection whose first id is 1.
func NewCollection() *Collection {
	return &Collection{nextID: 1, records: []Record{}}
}

// Add appends a record with the next id and returns it. It fails with
// ErrIDsExhausted once the id space is used up.
func (c *Collection) Add(service, username, secret string) (Record, error) {
	if c.nextID == math.MaxUint64 {
		return Record{}, ErrIDsExhausted
	}
	r := Record{
		ID:       c.nextID,
		Service:  norm.NFC.String(service),
		Username: norm.NFC.String(username),
		Secret:   secret,
	}
	c.nextID++
	c.records = append(c.records, r)
	return r, nil
}

// Remove deletes the record with the given id. It reports whether a record
// was removed; the id is not released for reuse.
func (c *Collection) Remove(id uint64) bool {
	for i, r := range c.records {
		if r.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the records in insertion order.
func (c *Collection) List() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// NextID returns the id the next Add will assign.
func (c *Collection) NextID() uint64 {
	return c.nextID
}

// bareFormat is the legacy unencrypted layout, also used as the plaintext
// sealed inside a container.
type bareFormat struct {
	NextID     uint64   `json:"next_id"`
	VaultItems []Record `json:"vault_items"`
}

// MarshalJSON encodes the collection in the bare format.
func (c *Collection) MarshalJSON() ([]byte, error) {
	items := c.records
	if items == nil {
		items = []Record{}
	}
	return json.Marshal(bareFormat{NextID: c.nextID, VaultItems: items})
}

// UnmarshalJSON decodes the bare format. Both fields are required, ids must
// be non-zero, unique and below math.MaxUint64, and a next_id not above the
// largest id is raised to largest id + 1.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var wire struct {
		NextID     *uint64   `json:"next_id"`
		VaultItems *[]Record `json:"vault_items"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCollection, err)
	}
	if wire.NextID == nil {
		return fmt.Errorf("%w: missing next_id", ErrMalformedCollection)
	}
	if wire.VaultItems == nil {
		return fmt.Errorf("%w: missing vault_items", ErrMalformedCollection)
	}

	records := *wire.VaultItems
	for i := range records {
		records[i].Service = norm.NFC.String(records[i].Service)
		records[i].Username = norm.NFC.String(records[i].Username)
	}
	seen := make(map[uint64]struct{}, len(records))
	var maxID uint64
	for _, r := range records {
		if r.ID == 0 {
			return fmt.Errorf("%w: record with id 0", ErrMalformedCollection)
		}
		if r.ID == math.MaxUint64 {
			return fmt.Errorf("%w: id %d leaves no room for next_id", ErrMalformedCollection, r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d", ErrMalformedCollection, r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.ID > maxID {
			maxID = r.ID
		}
	}

	nextID := *wire.NextID
	if nextID <= maxID {
		nextID = maxID + 1
	}
	if records == nil {
		records = []Record{}
	}

	c.nextID = nextID
	c.records = records
	return nil
}

// ParseCollection decodes a bare-format document.
func ParseCollection(data []byte) (*Collection, error) {
	c := &Collection{}
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return c, nil
}
