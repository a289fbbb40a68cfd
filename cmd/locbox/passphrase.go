package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forest6511/locbox/pkg/crypto"
	"github.com/forest6511/locbox/pkg/security"
)

// EnvPassphrase supplies the passphrase without prompting.
const EnvPassphrase = "LOCBOX_PASSPHRASE"

var errEmptyPassphrase = errors.New("passphrase must not be empty")

// readPassphrase returns the passphrase from $LOCBOX_PASSPHRASE, a terminal
// prompt, or the first line of piped stdin. The caller owns the slice and
// must wipe it.
func readPassphrase(cmd *cobra.Command, prompt string) ([]byte, error) {
	if v, ok := os.LookupEnv(EnvPassphrase); ok && v != "" {
		return []byte(v), nil
	}

	var (
		p   []byte
		err error
	)
	if isTerminal() {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		p, err = term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(cmd.ErrOrStderr())
	} else {
		p, err = readLine(cmd.InOrStdin())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(p) == 0 {
		return nil, errEmptyPassphrase
	}
	return p, nil
}

// confirmNewPassphrase asks for the passphrase a second time before it is
// used to encrypt a store for the first time, and prints a strength advisory.
// Non-interactive sources are trusted as given.
func confirmNewPassphrase(cmd *cobra.Command, passphrase []byte) error {
	check := security.CheckPassphrase(passphrase)
	for _, w := range check.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	if _, ok := os.LookupEnv(EnvPassphrase); ok || !isTerminal() {
		return nil
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Creating an encrypted store (passphrase strength: %s).\n", check.Strength)
	again, err := readPassphrase(cmd, "Confirm passphrase: ")
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(again)

	if !bytes.Equal(passphrase, again) {
		return errors.New("passphrases do not match")
	}
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

func readLine(r io.Reader) ([]byte, error) {
	line, err := bufio.NewReader(r).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}
