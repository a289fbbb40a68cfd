package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <service> <username> <password>",
		Short: "Add a new record",
		Long: `Add a record to the store and print it.

The service and username are stored in Unicode NFC form. IDs are never
reused, even after a record is removed.`,
		Example: `  locbox add github alice 's3cret'
  LOCBOX_PASSPHRASE=... locbox add --db ~/vault.json mail bob hunter2`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			defer s.close()

			rec, err := s.coll.Add(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if err := s.save(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Added the following:")
			fmt.Fprintf(out, "ID: %d\n", rec.ID)
			fmt.Fprintf(out, "Service: %s\n", rec.Service)
			fmt.Fprintf(out, "Username: %s\n", rec.Username)
			fmt.Fprintf(out, "Password: %s\n", rec.Secret)
			return nil
		},
	}
}
