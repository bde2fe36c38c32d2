// Settings commands for the biblia CLI.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

func newSettingsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change reader settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			settings := make([]types.Setting, 0, len(types.DefaultSettings))
			for _, d := range types.DefaultSettings {
				res := a.Service.GetSetting(cmd.Context(), d.Key)
				if err := res.Err(); err != nil {
					return &exitError{code: codeFor(res.Code), err: err}
				}
				if res.Data != nil {
					settings = append(settings, types.Setting{Key: d.Key, Value: *res.Data})
				}
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), settings)
			}
			tw := newTable(cmd.OutOrStdout())
			for _, s := range settings {
				fmt.Fprintf(tw, "%s\t%s\n", s.Key, s.Value)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := c.application()
				if err != nil {
					return err
				}
				res := a.Service.GetSetting(cmd.Context(), args[0])
				if res.Success && res.Data == nil && !c.jsonOut {
					return userError("setting %q is not set", args[0])
				}
				return emit(c, cmd, res, func(w io.Writer, v string) { fmt.Fprintln(w, v) })
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := c.application()
				if err != nil {
					return err
				}
				return emit(c, cmd, a.Service.SetSetting(cmd.Context(), args[0], args[1]), nil)
			},
		},
	)
	return cmd
}
