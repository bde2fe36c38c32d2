// Reading commands for the biblia CLI: books, read and verse.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newBooksCmd(c *cli) *cobra.Command {
	var testament string
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List the books in canonical order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			res := a.Service.ListBooks(cmd.Context())
			if res.Success && testament != "" {
				t := types.Testament(testament)
				if !t.Valid() {
					return userError("invalid testament %q: must be Old or New", testament)
				}
				filtered := []types.Book{}
				for _, b := range *res.Data {
					if b.Testament == t {
						filtered = append(filtered, b)
					}
				}
				res.Data = &filtered
			}
			return emit(c, cmd, res, func(w io.Writer, books []types.Book) {
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tABBREV\tNAME\tTESTAMENT\tCHAPTERS")
				for _, b := range books {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", b.ID, b.Abbreviation, b.Name, b.Testament, b.TotalChapters)
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&testament, "testament", "", "only list books of this testament (Old or New)")
	return cmd
}

func newReadCmd(c *cli) *cobra.Command {
	var noHistory bool
	cmd := &cobra.Command{
		Use:   "read <book> <chapter>",
		Short: "Print a chapter and record it in the reading history",
		Long: `Read prints every verse of a chapter. The book is given by id,
abbreviation or name, for example "Gn", "Gênesis" or "1".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := resolveBook(c, cmd, args[0])
			if err != nil {
				return err
			}
			chapter, err := parseNumber("chapter", args[1])
			if err != nil {
				return err
			}
			if chapter > book.TotalChapters {
				return userError("%s has %d chapters", book.Name, book.TotalChapters)
			}

			a, err := c.application()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			res := a.Service.ListVersesInChapter(ctx, book.ID, chapter)
			if res.Success && !noHistory {
				if h := a.Service.AddHistoryEntry(ctx, book.ID, chapter); !h.Success {
					fmt.Fprintln(cmd.ErrOrStderr(), "biblia: history not recorded:", h.Error)
				}
			}
			return emit(c, cmd, res, func(w io.Writer, verses []types.Verse) {
				fmt.Fprintf(w, "%s %d\n\n", book.Name, chapter)
				for _, v := range verses {
					fmt.Fprintf(w, "%3d  %s\n", v.Number, v.Text)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the chapter in the reading history")
	return cmd
}

func newVerseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verse <book> <chapter> <verse>",
		Short: "Print one verse with its id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := resolveBook(c, cmd, args[0])
			if err != nil {
				return err
			}
			chapter, err := parseNumber("chapter", args[1])
			if err != nil {
				return err
			}
			number, err := parseNumber("verse", args[2])
			if err != nil {
				return err
			}
			a, err := c.application()
			if err != nil {
				return err
			}
			res := a.Service.GetVerse(cmd.Context(), book.ID, chapter, number)
			return emit(c, cmd, res, func(w io.Writer, v types.VerseDetail) {
				fmt.Fprintf(w, "%s [%d]\n%s\n", v.Reference(), v.ID, v.Text)
			})
		},
	}
}
