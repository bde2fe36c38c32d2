// Version command for the biblia CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/biblia"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the biblia version",
		Args:  cobra.NoArgs,
		// No config or store is needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "biblia v%s\nmodule: %s\n", biblia.Version, biblia.ModulePath)
			return nil
		},
	}
}
