package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forest6511/locbox/pkg/crypto"
	"github.com/forest6511/locbox/pkg/filestore"
	"github.com/forest6511/locbox/pkg/vault"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the store file without decrypting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := a.cfg.DB

			raw, err := filestore.Read(path)
			if errors.Is(err, filestore.ErrNotFound) {
				fmt.Fprintf(out, "Store:   %s\n", path)
				fmt.Fprintln(out, "Format:  not created yet")
				return nil
			}
			if err != nil {
				return err
			}

			info := vault.Inspect(raw)
			fmt.Fprintf(out, "Store:   %s\n", path)
			fmt.Fprintf(out, "Size:    %s\n", humanize.IBytes(uint64(len(raw))))
			fmt.Fprintf(out, "Format:  %s\n", info.Format)

			switch info.Format {
			case vault.FormatEncrypted:
				fmt.Fprintf(out, "KDF:     Argon2id, %d iterations, %s memory, %d threads\n",
					info.Cost.Iterations, humanize.IBytes(uint64(info.Cost.MemoryKiB)*1024), crypto.Argon2Threads)
				fmt.Fprintln(out, "Cipher:  AES-256-GCM")
				if info.Cost != a.cfg.KDF.Cost() {
					fmt.Fprintln(out, "Note:    the next save re-encrypts with the configured KDF cost")
				}
			case vault.FormatLegacy:
				fmt.Fprintf(out, "Records: %d\n", info.Records)
				if a.cfg.Encrypt {
					fmt.Fprintln(out, "Note:    the next save encrypts this store")
				}
			case vault.FormatCorrupt:
				return fmt.Errorf("%s looks like an encrypted store but its header is damaged", path)
			}
			return nil
		},
	}
}
