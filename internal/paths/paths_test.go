package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirs_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}

	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
		xdg.Reload()
		t.Cleanup(xdg.Reload)

		assert.Equal(t, "/tmp/xdg-config/biblia", DefaultConfigDir())
	})

	t.Run("uses XDG_DATA_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
		xdg.Reload()
		t.Cleanup(xdg.Reload)

		assert.Equal(t, "/tmp/xdg-data/biblia", DefaultDataDir())
	})

	t.Run("falls back to ~/.local/share when XDG unset", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		xdg.Reload()
		t.Cleanup(xdg.Reload)

		home, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".local", "share", "biblia"), DefaultDataDir())
	})
}

func TestResolveConfigDir(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/tmp/env-config")
		got, err := ResolveConfigDir("/tmp/flag-config")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/flag-config", got)
	})

	t.Run("env when no flag", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/tmp/env-config")
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/env-config", got)
	})

	t.Run("default otherwise", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfigDir(), got)
	})
}

func TestResolveDataDir(t *testing.T) {
	tests := []struct {
		name   string
		flag   string
		config string
		env    string
		want   string
	}{
		{"flag wins over everything", "/tmp/flag", "/tmp/config", "/tmp/env", "/tmp/flag"},
		{"config wins over env", "", "/tmp/config", "/tmp/env", "/tmp/config"},
		{"env when no flag or config", "", "", "/tmp/env", "/tmp/env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.env)
			got, err := ResolveDataDir(tt.flag, tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("default when nothing set", func(t *testing.T) {
		t.Setenv(EnvDataDir, "")
		got, err := ResolveDataDir("", "")
		require.NoError(t, err)
		assert.Equal(t, DefaultDataDir(), got)
	})
}

func withPlatform(t *testing.T, cwd, exe string) {
	t.Helper()
	orig := platformDir
	platformDir.getwd = func() (string, error) { return cwd, nil }
	platformDir.executable = func() (string, error) { return exe, nil }
	t.Cleanup(func() { platformDir = orig })
}

func TestCorpusCandidatesOrder(t *testing.T) {
	withPlatform(t, "/work/biblia", "/opt/biblia/bin/biblia")

	got := CorpusCandidates("/custom/KJA.json", "/opt/biblia/Resources")

	require.GreaterOrEqual(t, len(got), 4)
	assert.Equal(t, []string{
		"/custom/KJA.json",
		"/work/biblia/assets/KJA.json",
		"/opt/biblia/bin/assets/KJA.json",
		"/opt/biblia/Resources/assets/KJA.json",
	}, got[:4])
}

func TestCorpusCandidatesDefaultsResourcesNextToExecutable(t *testing.T) {
	withPlatform(t, "/work/biblia", "/opt/biblia/biblia")

	got := CorpusCandidates("", "")

	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, "/work/biblia/assets/KJA.json", got[0])
	assert.Equal(t, "/opt/biblia/assets/KJA.json", got[1])
	assert.Equal(t, "/opt/biblia/resources/assets/KJA.json", got[2])
}

func TestCorpusCandidatesDropsDuplicates(t *testing.T) {
	withPlatform(t, "/opt/biblia", "/opt/biblia/biblia")

	got := CorpusCandidates("/opt/biblia/assets/KJA.json", "")

	seen := map[string]int{}
	for _, p := range got {
		seen[p]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
	assert.Equal(t, "/opt/biblia/assets/KJA.json", got[0])
}
