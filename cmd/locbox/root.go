package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/locbox/internal/config"
	"github.com/forest6511/locbox/internal/lock"
	"github.com/forest6511/locbox/pkg/crypto"
	"github.com/forest6511/locbox/pkg/filestore"
	"github.com/forest6511/locbox/pkg/vault"
)

// lockTimeout bounds how long a mutating command waits for another locbox process.
const lockTimeout = 5 * time.Second

// app carries flags and resolved settings for one invocation.
type app struct {
	configPath    string
	dbPath        string
	noEncrypt     bool
	noLock        bool
	kdfIterations uint32
	kdfMemoryKiB  uint32
	verbose       bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "locbox",
		Short: "locbox is a lightweight, local password manager",
		Long: `A lightweight CLI password manager.

Records are kept in a single file, encrypted with a key derived from your
passphrase (Argon2id + AES-256-GCM). Set LOCBOX_PASSPHRASE to supply the
passphrase non-interactively.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// PersistentPreRunE runs before every subcommand and resolves the
		// configuration: file, then environment, then flags.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default: $LOCBOX_CONFIG or <config dir>/locbox/config.yaml)")
	pf.StringVar(&a.dbPath, "db", config.DefaultDBPath, "Store file path")
	pf.BoolVar(&a.noEncrypt, "no-encrypt", false, "Read and write the unencrypted legacy format")
	pf.BoolVar(&a.noLock, "no-lock", false, "Do not take the advisory lock while modifying the store")
	pf.Uint32Var(&a.kdfIterations, "kdf-iterations", crypto.DefaultIterations, "Argon2id iterations for newly written stores")
	pf.Uint32Var(&a.kdfMemoryKiB, "kdf-memory", crypto.DefaultMemoryKiB, "Argon2id memory in KiB for newly written stores")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newAddCmd(a))
	rootCmd.AddCommand(newRemoveCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newInfoCmd(a))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DB = a.dbPath
	}
	if flags.Changed("no-encrypt") {
		cfg.Encrypt = !a.noEncrypt
	}
	if flags.Changed("no-lock") {
		cfg.Lock = !a.noLock
	}
	if flags.Changed("kdf-iterations") {
		cfg.KDF.Iterations = a.kdfIterations
	}
	if flags.Changed("kdf-memory") {
		cfg.KDF.MemoryKiB = a.kdfMemoryKiB
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger.Debug("configuration resolved", "config", path, "db", cfg.DB, "encrypt", cfg.Encrypt, "lock", cfg.Lock)
	return nil
}

// session is an opened store for the duration of one command. The
// passphrase lives until close because save re-derives the key from it.
type session struct {
	a          *app
	coll       *vault.Collection
	outcome    vault.Outcome
	passphrase []byte
	lock       *lock.Lock
}

// open reads the passphrase, then loads the store. When forWrite is set the
// advisory lock is taken after the prompt and held until close, spanning the
// load-modify-save cycle but not the time spent typing.
func (a *app) open(cmd *cobra.Command, forWrite bool) (*session, error) {
	s := &session{a: a}
	ok := false
	defer func() {
		if !ok {
			s.close()
		}
	}()

	if runtime.GOOS != "windows" {
		if perm, insecure := filestore.InsecurePermissions(a.cfg.DB); insecure {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s has insecure permissions %04o (expected 0600)\n", a.cfg.DB, perm)
		}
	}

	if a.cfg.Encrypt {
		p, err := readPassphrase(cmd, "Enter passphrase: ")
		if err != nil {
			return nil, err
		}
		s.passphrase = p
	}

	if forWrite && a.cfg.Lock {
		ctx, cancel := context.WithTimeout(cmd.Context(), lockTimeout)
		l, err := lock.Acquire(ctx, a.cfg.DB)
		cancel()
		if err != nil {
			return nil, err
		}
		s.lock = l
	}

	res, err := vault.LoadFile(a.cfg.DB, s.passphrase, &vault.LoadOptions{Logger: a.logger})
	if err != nil {
		return nil, describeLoadError(a.cfg.DB, err)
	}
	s.coll = res.Collection
	s.outcome = res.Outcome

	if forWrite && a.cfg.Encrypt && res.Outcome != vault.OutcomeLoaded {
		if err := confirmNewPassphrase(cmd, s.passphrase); err != nil {
			return nil, err
		}
	}

	ok = true
	return s, nil
}

// save writes the collection back through the atomic file store.
func (s *session) save() error {
	opts := &vault.SaveOptions{Cost: s.a.cfg.KDF.Cost()}
	if err := vault.SaveFile(s.a.cfg.DB, s.coll, s.passphrase, opts); err != nil {
		return fmt.Errorf("failed to save store (previous contents kept): %w", err)
	}
	if s.outcome == vault.OutcomeLegacy && s.passphrase != nil {
		s.a.logger.Info("legacy store migrated to the encrypted format", "path", s.a.cfg.DB)
	}
	s.a.logger.Debug("store saved", "path", s.a.cfg.DB, "records", s.coll.Len(), "encrypted", s.passphrase != nil)
	return nil
}

// close wipes the passphrase and releases the lock on every exit path.
func (s *session) close() {
	if s.passphrase != nil {
		crypto.SecureWipe(s.passphrase)
		s.passphrase = nil
	}
	if s.lock != nil {
		if err := s.lock.Release(); err != nil {
			s.a.logger.Warn("failed to release lock", "error", err)
		}
		s.lock = nil
	}
}

func describeLoadError(path string, err error) error {
	switch {
	case errors.Is(err, vault.ErrWrongPassphraseOrCorrupt):
		return fmt.Errorf("wrong passphrase or corrupted store %s (file left unchanged)", path)
	case errors.Is(err, vault.ErrPassphraseRequired):
		return fmt.Errorf("%s is encrypted; run without --no-encrypt", path)
	default:
		return fmt.Errorf("failed to load store %s: %w", path, err)
	}
}
