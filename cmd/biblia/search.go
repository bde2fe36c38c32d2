// Search command for the biblia CLI.
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		exact     bool
		bookRef   string
		testament string
	)
	cmd := &cobra.Command{
		Use:   "search <term>...",
		Short: "Full-text search over the verses",
		Long: `Search finds verses containing every word of the term that is at least
three characters long, matching word prefixes. With --exact the term is
matched as a phrase. At most 100 results are returned.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := types.SearchParams{
				Term:      strings.Join(args, " "),
				Exact:     exact,
				Testament: types.Testament(testament),
			}
			if bookRef != "" {
				book, err := resolveBook(c, cmd, bookRef)
				if err != nil {
					return err
				}
				params.BookID = book.ID
			}
			a, err := c.application()
			if err != nil {
				return err
			}
			res := a.Service.Search(cmd.Context(), params)
			return emit(c, cmd, res, func(w io.Writer, results []types.SearchResult) {
				for _, r := range results {
					fmt.Fprintf(w, "%s %d:%d [%d]  %s\n", r.BookName, r.Chapter, r.Number, r.VerseID, r.Text)
				}
				fmt.Fprintf(w, "%d results\n", len(results))
			})
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "match the term as a phrase")
	cmd.Flags().StringVar(&bookRef, "book", "", "restrict to one book (id, abbreviation or name)")
	cmd.Flags().StringVar(&testament, "testament", "", "restrict to a testament (Old or New)")
	return cmd
}
