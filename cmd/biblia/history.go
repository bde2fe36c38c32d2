// History command for the biblia CLI.
package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newHistoryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recently read chapters, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			res := a.Service.ListHistory(cmd.Context())
			return emit(c, cmd, res, func(w io.Writer, entries []types.HistoryEntry) {
				tw := newTable(w)
				fmt.Fprintln(tw, "CHAPTER\tREAD")
				for _, h := range entries {
					fmt.Fprintf(tw, "%s %d\t%s\n", h.BookName, h.Chapter, h.AccessedAt.Local().Format(time.DateTime))
				}
				tw.Flush()
			})
		},
	}
}
