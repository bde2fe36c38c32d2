// Annotation commands for the biblia CLI.
package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newNoteCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "note",
		Aliases: []string{"annotation"},
		Short:   "Manage verse annotations",
	}
	cmd.AddCommand(newNoteListCmd(c), newNoteAddCmd(c), newNoteEditCmd(c), newNoteRmCmd(c))
	return cmd
}

func printNotes(w io.Writer, notes []types.Annotation) {
	for _, n := range notes {
		fmt.Fprintf(w, "#%d  %s %d:%d  (%s)\n", n.ID, n.BookName, n.Chapter, n.Number,
			n.UpdatedAt.Local().Format(time.DateTime))
		if n.Title != "" {
			fmt.Fprintf(w, "    %s\n", n.Title)
		}
		fmt.Fprintf(w, "    %s\n", n.Body)
	}
}

func newNoteListCmd(c *cli) *cobra.Command {
	var verse int64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List annotations, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			if verse > 0 {
				return emit(c, cmd, a.Service.ListAnnotationsForVerse(cmd.Context(), verse), printNotes)
			}
			return emit(c, cmd, a.Service.ListAnnotations(cmd.Context()), printNotes)
		},
	}
	cmd.Flags().Int64Var(&verse, "verse", 0, "only annotations of this verse id")
	return cmd
}

func newNoteAddCmd(c *cli) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add <verse-id> <text>...",
		Short: "Annotate a verse",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			verseID, err := parseID("verse id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application()
			if err != nil {
				return err
			}
			in := types.AnnotationInput{VerseID: verseID, Title: title, Body: strings.Join(args[1:], " ")}
			res := a.Service.AddAnnotation(cmd.Context(), in)
			return emit(c, cmd, res, func(w io.Writer, n types.Annotation) {
				fmt.Fprintf(w, "added annotation #%d\n", n.ID)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "annotation title")
	return cmd
}

func newNoteEditCmd(c *cli) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "edit <id> <text>...",
		Short: "Replace an annotation's text and title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("annotation id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application()
			if err != nil {
				return err
			}
			res := a.Service.UpdateAnnotation(cmd.Context(), id, title, strings.Join(args[1:], " "))
			return emit(c, cmd, res, func(w io.Writer, n types.Annotation) {
				fmt.Fprintf(w, "updated annotation #%d\n", n.ID)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "annotation title")
	return cmd
}

func newNoteRmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an annotation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("annotation id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application()
			if err != nil {
				return err
			}
			return emit(c, cmd, a.Service.RemoveAnnotation(cmd.Context(), id), nil)
		},
	}
}
