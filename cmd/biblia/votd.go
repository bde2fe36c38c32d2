// Verse-of-the-day command for the biblia CLI.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newVotdCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "votd",
		Short: "Print the verse of the day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			res := a.Service.GetVerseOfDay(cmd.Context())
			return emit(c, cmd, res, func(w io.Writer, v types.VerseOfDay) {
				fmt.Fprintf(w, "%s\n%s\n", v.Reference, v.Verse.Text)
			})
		},
	}
}
