// Package paths resolves configuration, data and corpus locations.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// AppName names the per-user directories.
const AppName = "biblia"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "BIBLIA_CONFIG_DIR"
	EnvDataDir   = "BIBLIA_DATA_DIR"
)

// AssetsDirName is the directory that holds the corpus next to a checkout,
// an installed binary or a packaged resources directory.
const AssetsDirName = "assets"

// platformDir holds process-detection functions that can be overridden in tests.
var platformDir = struct {
	getwd      func() (string, error)
	executable func() (string, error)
}{
	getwd:      os.Getwd,
	executable: os.Executable,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/biblia (fallback ~/.config/biblia)
// macOS:   ~/Library/Application Support/biblia
// Windows: %LOCALAPPDATA%/biblia
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultDataDir returns the per-user data directory that holds the store
// file and the fallback snapshots.
//
// Linux:   $XDG_DATA_HOME/biblia (fallback ~/.local/share/biblia)
// macOS:   ~/Library/Application Support/biblia
// Windows: %LOCALAPPDATA%/biblia
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > BIBLIA_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir(), nil
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > configYAMLValue > BIBLIA_DATA_DIR env > DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configYAMLValue != "" {
		return filepath.Abs(configYAMLValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir(), nil
}

// CorpusCandidates returns the locations to try for the corpus, in order:
// the explicit path, the development-relative path ($CWD/assets), the
// install-relative path (next to the executable), and the packaged-resource
// paths (resourcesDir, then each XDG data dir). Duplicates are dropped.
func CorpusCandidates(explicit, resourcesDir string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p == "" {
			return
		}
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	add(explicit)

	if cwd, err := platformDir.getwd(); err == nil {
		add(filepath.Join(cwd, AssetsDirName, types.CorpusFileName))
	}

	exeDir := ""
	if exe, err := platformDir.executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		exeDir = filepath.Dir(exe)
		add(filepath.Join(exeDir, AssetsDirName, types.CorpusFileName))
	}

	if resourcesDir == "" && exeDir != "" {
		resourcesDir = filepath.Join(exeDir, "resources")
	}
	if resourcesDir != "" {
		add(filepath.Join(resourcesDir, AssetsDirName, types.CorpusFileName))
	}
	for _, dir := range xdg.DataDirs {
		add(filepath.Join(dir, AppName, AssetsDirName, types.CorpusFileName))
	}
	return out
}
