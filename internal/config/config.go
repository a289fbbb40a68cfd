// Package config loads locbox settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/forest6511/locbox/pkg/crypto"
)

// Environment variables recognized by Load.
const (
	EnvConfig        = "LOCBOX_CONFIG"
	EnvDB            = "LOCBOX_DB"
	EnvKDFIterations = "LOCBOX_KDF_ITERATIONS"
	EnvKDFMemoryKiB  = "LOCBOX_KDF_MEMORY_KIB"
)

// DefaultDBPath is the store file used when nothing else is configured.
const DefaultDBPath = "db.json"

// ErrConfigInsecure is returned when the config file is writable by others.
var ErrConfigInsecure = errors.New("config: file is writable by group or others")

// Config is the resolved locbox configuration.
type Config struct {
	DB      string    `yaml:"db"`
	Encrypt bool      `yaml:"encrypt"`
	Lock    bool      `yaml:"lock"`
	KDF     KDFConfig `yaml:"kdf"`
}

// KDFConfig holds the Argon2id cost used when writing a store.
type KDFConfig struct {
	Iterations uint32 `yaml:"iterations"`
	MemoryKiB  uint32 `yaml:"memory_kib"`
}

// Cost returns the configured KDF cost.
func (k KDFConfig) Cost() crypto.CostParams {
	return crypto.CostParams{Iterations: k.Iterations, MemoryKiB: k.MemoryKiB}
}

func defaults() Config {
	d := crypto.DefaultCostParams()
	return Config{
		DB:      DefaultDBPath,
		Encrypt: true,
		Lock:    true,
		KDF: KDFConfig{
			Iterations: d.Iterations,
			MemoryKiB:  d.MemoryKiB,
		},
	}
}

// DefaultPath returns the config file location: $LOCBOX_CONFIG, else
// <user config dir>/locbox/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "locbox", "config.yaml")
}

// Load reads the config file at path (a missing file yields defaults),
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := readConfigFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, fmt.Errorf("config: %s is a symlink", path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0022 != 0 {
		return nil, fmt.Errorf("%w: %s has mode %04o", ErrConfigInsecure, path, info.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return data, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDB); v != "" {
		cfg.DB = v
	}
	if v := os.Getenv(EnvKDFIterations); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("config: invalid %s: %w", EnvKDFIterations, err)
		}
		cfg.KDF.Iterations = uint32(n)
	}
	if v := os.Getenv(EnvKDFMemoryKiB); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("config: invalid %s: %w", EnvKDFMemoryKiB, err)
		}
		cfg.KDF.MemoryKiB = uint32(n)
	}
	return nil
}

// Validate checks the settings are usable.
func (c *Config) Validate() error {
	if c.DB == "" {
		return errors.New("config: db path must not be empty")
	}
	if err := c.KDF.Cost().Validate(); err != nil {
		return fmt.Errorf("config: kdf: %w", err)
	}
	return nil
}
