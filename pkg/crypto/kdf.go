package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters following OWASP recommendations.
const (
	// DefaultIterations is the default Argon2 time cost.
	DefaultIterations = 3

	// DefaultMemoryKiB is the default Argon2 memory cost in KiB (64MB).
	DefaultMemoryKiB = 64 * 1024

	// Argon2Threads is the degree of parallelism. It is not recorded in the
	// container, so it must never change for existing files to stay readable.
	Argon2Threads = 4

	// MinMemoryKiB is the smallest memory cost Argon2 accepts for Argon2Threads lanes.
	MinMemoryKiB = 8 * Argon2Threads

	// MaxMemoryKiB caps the memory cost at 4GB regardless of host size.
	MaxMemoryKiB = 4 * 1024 * 1024

	// MaxIterations caps the time cost accepted from a file.
	MaxIterations = 64
)

// CostParams are the Argon2id cost parameters stored with every container.
type CostParams struct {
	Iterations uint32 // Time cost
	MemoryKiB  uint32 // Memory cost in KiB
}

// DefaultCostParams returns the cost used when the caller configures none.
func DefaultCostParams() CostParams {
	return CostParams{Iterations: DefaultIterations, MemoryKiB: DefaultMemoryKiB}
}

// Validate reports whether the parameters can be used on this host.
func (p CostParams) Validate() error {
	if p.Iterations < 1 {
		return &DerivationError{Field: "iterations", Message: "must be at least 1"}
	}
	if p.Iterations > MaxIterations {
		return &DerivationError{Field: "iterations", Message: fmt.Sprintf("%d exceeds maximum %d", p.Iterations, MaxIterations)}
	}
	if p.MemoryKiB < MinMemoryKiB {
		return &DerivationError{Field: "memory", Message: fmt.Sprintf("%d KiB is below minimum %d KiB", p.MemoryKiB, MinMemoryKiB)}
	}
	if p.MemoryKiB > MaxMemoryKiB {
		return &DerivationError{Field: "memory", Message: fmt.Sprintf("%d KiB exceeds maximum %d KiB", p.MemoryKiB, MaxMemoryKiB)}
	}
	if total, ok := hostMemoryKiB(); ok && uint64(p.MemoryKiB) > total {
		return &DerivationError{Field: "memory", Message: fmt.Sprintf("%d KiB exceeds host memory %d KiB", p.MemoryKiB, total)}
	}
	return nil
}

// DerivationError describes why a key could not be derived.
type DerivationError struct {
	Field   string // "passphrase", "salt", "iterations" or "memory"
	Message string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("crypto: key derivation failed: %s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrDerivation) true for every DerivationError.
func (e *DerivationError) Is(target error) bool {
	return target == ErrDerivation
}

// GenerateSalt generates a cryptographically secure random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives a 256-bit key from a passphrase using Argon2id.
//
// The result is deterministic for a given (passphrase, salt, params). The
// returned key is pinned in memory where the platform allows it; release it
// with ReleaseKey.
func DeriveKey(passphrase, salt []byte, params CostParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, &DerivationError{Field: "passphrase", Message: "must not be empty"}
	}
	if len(salt) != SaltLength {
		return nil, &DerivationError{Field: "salt", Message: fmt.Sprintf("length %d, want %d", len(salt), SaltLength)}
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	key := argon2.IDKey(passphrase, salt, params.Iterations, params.MemoryKiB, Argon2Threads, KeyLength)
	// Pinning can fail under a low RLIMIT_MEMLOCK; the key is still usable.
	_ = lockMemory(key)
	return key, nil
}
