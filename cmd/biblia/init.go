// Init command for the biblia CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/biblia/internal/service"
)

type initReport struct {
	ConfigDir  string         `json:"config_dir"`
	ConfigFile string         `json:"config_file"`
	DataDir    string         `json:"data_dir"`
	Status     service.Status `json:"status"`
}

func newInitCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and initialize storage",
		Long: `Init writes a default config.yaml if none exists, then selects a backend:
it opens the SQLite store and migrates the corpus into it when needed, or
falls back to the JSON snapshot store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			if err := a.Service.Initialize(cmd.Context()); err != nil {
				return &exitError{code: exitSysError, err: fmt.Errorf("init: %w", err)}
			}

			rep := initReport{
				ConfigDir:  c.configDir,
				ConfigFile: c.configPath,
				DataDir:    a.Config.DataDir,
				Status:     a.Service.Status(),
			}
			if c.jsonOut {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "biblia initialized")
			fmt.Fprintln(out, "  config: ", rep.ConfigDir)
			fmt.Fprintln(out, "  data:   ", rep.DataDir)
			fmt.Fprintln(out, "  backend:", rep.Status.Backend)
			if rep.Status.Cause != "" {
				fmt.Fprintln(out, "  cause:  ", rep.Status.Cause)
			}
			return nil
		},
	}
}
