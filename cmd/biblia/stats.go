// Statistics and status commands for the biblia CLI.
package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the corpus and user data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			res := a.Service.GetStatistics(cmd.Context())
			return emit(c, cmd, res, func(w io.Writer, s types.Statistics) {
				tw := newTable(w)
				fmt.Fprintf(tw, "backend\t%s\n", s.Backend)
				fmt.Fprintf(tw, "books\t%d (%d old, %d new)\n", s.TotalBooks, s.OldTestament, s.NewTestament)
				fmt.Fprintf(tw, "chapters\t%d\n", s.TotalChapters)
				fmt.Fprintf(tw, "verses\t%d\n", s.TotalVerses)
				fmt.Fprintf(tw, "favorites\t%d\n", s.TotalFavorites)
				fmt.Fprintf(tw, "annotations\t%d\n", s.TotalAnnotations)
				fmt.Fprintf(tw, "history\t%d entries, %d books visited\n", s.HistoryEntries, s.BooksVisited)
				if s.LastAccess != nil {
					fmt.Fprintf(tw, "last read\t%s\n", s.LastAccess.Local().Format(time.DateTime))
				}
				tw.Flush()
			})
		},
	}
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Initialize storage and report the selected backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			initErr := a.Service.Initialize(cmd.Context())
			st := a.Service.Status()
			if c.jsonOut {
				if err := printJSON(cmd.OutOrStdout(), st); err != nil {
					return err
				}
			} else {
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintf(tw, "phase\t%s\n", st.Phase)
				fmt.Fprintf(tw, "backend\t%s\n", st.Backend)
				fmt.Fprintf(tw, "migration\t%s\n", st.Migration)
				if st.Cause != "" {
					fmt.Fprintf(tw, "cause\t%s\n", st.Cause)
				}
				tw.Flush()
			}
			if initErr != nil {
				return &exitError{code: exitSysError, err: initErr, silent: true}
			}
			return nil
		},
	}
}
