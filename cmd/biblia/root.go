// Root command for the biblia CLI.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/biblia/internal/app"
	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/internal/paths"
	"github.com/mesh-intelligence/biblia/pkg/biblia"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// cli holds the flag values and the lazily built application for one
// command invocation.
type cli struct {
	configDir string
	dataDir   string
	jsonOut   bool

	configPath string
	cfg        types.Config
	app        *app.App
}

// newRootCmd builds the command tree. stderr receives log output.
func newRootCmd(c *cli, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "biblia",
		Short: "Read, search and annotate the Bible from the command line",
		Long: `biblia reads the King James em Português corpus from a local SQLite
store, migrating it from the bundled JSON corpus on first use. When the
store cannot be opened it serves from JSON snapshot files instead.`,
		Version:       biblia.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadDotEnv("."); err != nil {
				return err
			}
			configDir, err := paths.ResolveConfigDir(c.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			if err := loadDotEnv(configDir); err != nil {
				return err
			}

			v, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			logging.InitLogger(
				logging.ParseLevel(v.GetString(cfgKeyLogLevel)),
				logging.ParseFormat(v.GetString(cfgKeyLogFormat)),
				stderr,
			)

			cfg, err := storeConfig(v, c.dataDir)
			if err != nil {
				return &exitError{code: exitUserError, err: fmt.Errorf("config: %w", err)}
			}
			c.configDir = configDir
			c.configPath = v.ConfigFileUsed()
			c.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/biblia)")
	pf.StringVar(&c.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/biblia)")
	pf.String("corpus", "", "path to the corpus file (KJA.json or KJA.json.xz)")
	pf.String("backend", "", "backend: auto, sqlite or json")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&c.jsonOut, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(c),
		newMigrateCmd(c),
		newStatusCmd(c),
		newBooksCmd(c),
		newReadCmd(c),
		newVerseCmd(c),
		newSearchCmd(c),
		newFavoriteCmd(c),
		newNoteCmd(c),
		newHistoryCmd(c),
		newVotdCmd(c),
		newSettingsCmd(c),
		newStatsCmd(c),
		newServeCmd(c),
	)
	return root
}

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"corpus":    cfgKeyCorpusPath,
	"backend":   cfgKeyBackend,
	"log-level": cfgKeyLogLevel,
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

// application builds the App on first use.
func (c *cli) application() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := app.New(c.cfg, logging.GetLogger())
	if err != nil {
		return nil, &exitError{code: exitUserError, err: err}
	}
	c.app = a
	return a, nil
}

// close releases the App if one was built.
func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}
