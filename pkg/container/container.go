// Package container encodes and decodes the encrypted locbox file format.
//
// A container is a JSON object carrying the Argon2id cost parameters, the
// salt and the AEAD-sealed collection:
//
//	{
//	  "salt_b64": "...",
//	  "kdf_iterations": 3,
//	  "kdf_memory_kib": 65536,
//	  "blob_b64": "..."
//	}
//
// There is no version byte; a container is recognized by its field names.
package container

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/forest6511/locbox/pkg/crypto"
)

// Field names of the on-disk format.
const (
	FieldSalt       = "salt_b64"
	FieldIterations = "kdf_iterations"
	FieldMemory     = "kdf_memory_kib"
	FieldBlob       = "blob_b64"
)

var requiredFields = []string{FieldSalt, FieldIterations, FieldMemory, FieldBlob}

// ErrNotContainer is wrapped by a ParseError when the input has none of the
// container fields, i.e. it is some other document rather than a damaged container.
var ErrNotContainer = errors.New("container: not a container")

// ParseError reports why bytes could not be decoded as a container.
type ParseError struct {
	Field   string // Offending field, empty for document-level errors
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("container: parse error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("container: parse error: %s", e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Container is the decoded on-disk encrypted representation.
type Container struct {
	Salt []byte
	Cost crypto.CostParams
	Blob []byte
}

// fileFormat is the JSON layout written to disk. Field order matters only
// for readability of the file.
type fileFormat struct {
	SaltB64       string `json:"salt_b64"`
	KDFIterations uint32 `json:"kdf_iterations"`
	KDFMemoryKiB  uint32 `json:"kdf_memory_kib"`
	BlobB64       string `json:"blob_b64"`
}

// Encode serializes a container to its text-safe JSON form.
func Encode(salt []byte, cost crypto.CostParams, blob []byte) ([]byte, error) {
	f := fileFormat{
		SaltB64:       base64.StdEncoding.EncodeToString(salt),
		KDFIterations: cost.Iterations,
		KDFMemoryKiB:  cost.MemoryKiB,
		BlobB64:       base64.StdEncoding.EncodeToString(blob),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("container: failed to marshal: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses container bytes.
//
// Input that is not a JSON object, or an object with none of the container
// fields, yields a ParseError wrapping ErrNotContainer. An object with some
// container fields but a missing or undecodable one yields a ParseError
// naming that field.
func Decode(data []byte) (*Container, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &ParseError{Message: "not a JSON object", Err: fmt.Errorf("%w: %v", ErrNotContainer, err)}
	}

	present := 0
	for _, name := range requiredFields {
		if _, ok := fields[name]; ok {
			present++
		}
	}
	if present == 0 {
		return nil, &ParseError{Message: "no container fields", Err: ErrNotContainer}
	}

	var c Container
	var err error
	if c.Salt, err = decodeBinary(fields, FieldSalt); err != nil {
		return nil, err
	}
	if c.Cost.Iterations, err = decodeUint(fields, FieldIterations); err != nil {
		return nil, err
	}
	if c.Cost.MemoryKiB, err = decodeUint(fields, FieldMemory); err != nil {
		return nil, err
	}
	if c.Blob, err = decodeBinary(fields, FieldBlob); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeBinary(fields map[string]json.RawMessage, name string) ([]byte, error) {
	raw, ok := fields[name]
	if !ok {
		return nil, &ParseError{Field: name, Message: "missing required field"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &ParseError{Field: name, Message: "not a string", Err: err}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &ParseError{Field: name, Message: "invalid base64", Err: err}
	}
	return b, nil
}

func decodeUint(fields map[string]json.RawMessage, name string) (uint32, error) {
	raw, ok := fields[name]
	if !ok {
		return 0, &ParseError{Field: name, Message: "missing required field"}
	}
	var n uint32
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &ParseError{Field: name, Message: "not an unsigned 32-bit integer", Err: err}
	}
	return n, nil
}
