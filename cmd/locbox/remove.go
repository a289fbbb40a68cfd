package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a record by ID",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q: must be a positive integer", args[0])
			}

			s, err := a.open(cmd, true)
			if err != nil {
				return err
			}
			defer s.close()

			// Nothing changed: leave the file as it is.
			if !s.coll.Remove(id) {
				fmt.Fprintf(cmd.OutOrStdout(), "Unable to find service with the ID: %d\n", id)
				return nil
			}
			if err := s.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed service with ID: %d\n", id)
			return nil
		},
	}
}
