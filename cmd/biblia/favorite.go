// Favorite commands for the biblia CLI.
package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/internal/service"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newFavoriteCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorite",
		Aliases: []string{"fav"},
		Short:   "Manage favorite verses",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorites, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := c.application()
				if err != nil {
					return err
				}
				res := a.Service.ListFavorites(cmd.Context())
				return emit(c, cmd, res, func(w io.Writer, favs []types.Favorite) {
					tw := newTable(w)
					fmt.Fprintln(tw, "VERSE\tREFERENCE\tADDED\tTEXT")
					for _, f := range favs {
						fmt.Fprintf(tw, "%d\t%s %d:%d\t%s\t%s\n",
							f.VerseID, f.BookName, f.Chapter, f.Number, f.CreatedAt.Local().Format(time.DateOnly), f.Text)
					}
					tw.Flush()
				})
			},
		},
		verseIDCmd(c, "add <verse-id>", "Mark a verse as favorite", func(s *service.Service, cmd *cobra.Command, id int64) error {
			return emit(c, cmd, s.AddFavorite(cmd.Context(), id), nil)
		}),
		verseIDCmd(c, "rm <verse-id>", "Unmark a favorite verse", func(s *service.Service, cmd *cobra.Command, id int64) error {
			return emit(c, cmd, s.RemoveFavorite(cmd.Context(), id), nil)
		}),
		verseIDCmd(c, "check <verse-id>", "Report whether a verse is a favorite", func(s *service.Service, cmd *cobra.Command, id int64) error {
			return emit(c, cmd, s.IsFavorite(cmd.Context(), id), func(w io.Writer, ok bool) {
				fmt.Fprintln(w, ok)
			})
		}),
	)
	return cmd
}

// verseIDCmd builds a subcommand taking a single verse id.
func verseIDCmd(c *cli, use, short string, run func(s *service.Service, cmd *cobra.Command, id int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("verse id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application()
			if err != nil {
				return err
			}
			return run(a.Service, cmd, id)
		},
	}
}
