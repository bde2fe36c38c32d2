// Config loading for the biblia CLI.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/biblia/internal/paths"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	dotEnvFile     = ".env"
	envPrefix      = "BIBLIA"

	cfgKeyBackend          = "backend"
	cfgKeyDataDir          = "data_dir"
	cfgKeyCorpusPath       = "corpus_path"
	cfgKeyResourcesDir     = "resources_dir"
	cfgKeyOpenTimeout      = "open_timeout"
	cfgKeyInitWaitTimeout  = "init_wait_timeout"
	cfgKeyMigrationTimeout = "migration_timeout"
	cfgKeyBusyTimeout      = "busy_timeout"
	cfgKeyContention       = "contention_policy"
	cfgKeyLogLevel         = "log_level"
	cfgKeyLogFormat        = "log_format"
)

// configFile is the structure written to config.yaml. Durations are
// strings so the file stays readable.
type configFile struct {
	Backend          string `yaml:"backend"`
	DataDir          string `yaml:"data_dir,omitempty"`
	CorpusPath       string `yaml:"corpus_path,omitempty"`
	OpenTimeout      string `yaml:"open_timeout"`
	InitWaitTimeout  string `yaml:"init_wait_timeout"`
	MigrationTimeout string `yaml:"migration_timeout"`
	BusyTimeout      string `yaml:"busy_timeout"`
	ContentionPolicy string `yaml:"contention_policy"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
}

const configHeader = `# biblia configuration
# Every key can be overridden with a BIBLIA_<KEY> environment variable,
# for example BIBLIA_BACKEND=json.

`

func defaultConfigFile() configFile {
	d := types.DefaultConfig()
	return configFile{
		Backend:          d.Backend,
		OpenTimeout:      d.OpenTimeout.String(),
		InitWaitTimeout:  d.InitWaitTimeout.String(),
		MigrationTimeout: d.MigrationTimeout.String(),
		BusyTimeout:      d.BusyTimeout.String(),
		ContentionPolicy: string(d.ContentionPolicy),
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// loadDotEnv loads .env from dir into the environment. Variables already
// set win. A missing file is not an error.
func loadDotEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, dotEnvFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotEnvFile, err)
	}
	return nil
}

// loadConfig reads config.yaml from configDir, writing a default one on
// first run. BIBLIA_* environment variables override the file.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	def := types.DefaultConfig()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyOpenTimeout, def.OpenTimeout)
	v.SetDefault(cfgKeyInitWaitTimeout, def.InitWaitTimeout)
	v.SetDefault(cfgKeyMigrationTimeout, def.MigrationTimeout)
	v.SetDefault(cfgKeyBusyTimeout, def.BusyTimeout)
	v.SetDefault(cfgKeyContention, string(def.ContentionPolicy))
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// storeConfig builds the persistence config. Flags, already bound into v,
// take precedence; the data directory follows paths.ResolveDataDir.
func storeConfig(v *viper.Viper, dataDirFlag string) (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend:          v.GetString(cfgKeyBackend),
		DataDir:          dataDir,
		CorpusPath:       v.GetString(cfgKeyCorpusPath),
		ResourcesDir:     v.GetString(cfgKeyResourcesDir),
		OpenTimeout:      v.GetDuration(cfgKeyOpenTimeout),
		InitWaitTimeout:  v.GetDuration(cfgKeyInitWaitTimeout),
		MigrationTimeout: v.GetDuration(cfgKeyMigrationTimeout),
		BusyTimeout:      v.GetDuration(cfgKeyBusyTimeout),
		ContentionPolicy: types.ContentionPolicy(v.GetString(cfgKeyContention)),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg.WithDefaults(), nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile writes a default config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defaultConfigFile()); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
