package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var hideSecrets bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all records",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd, false)
			if err != nil {
				return err
			}
			defer s.close()

			records := s.coll.List()
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No records stored.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSERVICE\tUSERNAME\tPASSWORD")
			for _, r := range records {
				secret := r.Secret
				if hideSecrets {
					secret = "********"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Service, r.Username, secret)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&hideSecrets, "hide", false, "Mask passwords in the output")
	return cmd
}
