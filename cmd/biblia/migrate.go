// Migrate command for the biblia CLI.
package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/internal/migrate"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Load the corpus into the SQLite store",
		Long: `Migrate loads the corpus into the SQLite store when the store has no
corpus yet. With --force it reloads unconditionally; favorites, annotations
and history are cleared since they reference the old verse ids.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			out, err := a.Migrate(cmd.Context(), force)
			if err != nil {
				return &exitError{code: exitSysError, err: err}
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), out)
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reload the corpus even if the store already holds one")
	cmd.AddCommand(newMigrateLogCmd(c))
	return cmd
}

func newMigrateLogCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "List past migration runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			records, err := a.Migrations(cmd.Context())
			if err != nil {
				return &exitError{code: exitSysError, err: err}
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), records)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tFINISHED\tBOOKS\tCHAPTERS\tVERSES\tINDEX")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%t\n",
					r.ID, r.FinishedAt.Local().Format(time.DateTime), r.Books, r.Chapters, r.Verses, r.IndexBuilt)
			}
			return tw.Flush()
		},
	}
}

func printOutcome(w io.Writer, out migrate.Outcome) {
	if !out.Migrated {
		fmt.Fprintln(w, "store already holds a corpus; nothing to do")
		return
	}
	r := out.Report
	fmt.Fprintf(w, "migrated %d books, %d chapters, %d verses in %s\n",
		r.Books, r.Chapters, r.Verses, r.Duration.Round(time.Millisecond))
	fmt.Fprintln(w, "  run:   ", r.ID)
	fmt.Fprintln(w, "  corpus:", r.CorpusPath)
	if len(r.Skipped) > 0 {
		fmt.Fprintln(w, "  skipped:", strings.Join(r.Skipped, ", "))
	}
	if !r.IndexBuilt {
		fmt.Fprintln(w, "  search index: not built")
	}
	if r.Statistics != nil {
		fmt.Fprintf(w, "  testaments: %d old, %d new\n", r.Statistics.OldTestament, r.Statistics.NewTestament)
	}
	if r.SmokeHits >= 0 {
		fmt.Fprintf(w, "  smoke search: %d hits\n", r.SmokeHits)
	}
}
