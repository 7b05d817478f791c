package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.NotEmpty(t, c.DataDirs)
	assert.Equal(t, AccountsDBName, filepath.Base(c.AccountsDBPath))
	assert.Equal(t, AliasFileName, filepath.Base(c.AliasPath))
	assert.NotEmpty(t, c.StateDBCandidates)
	assert.NotEmpty(t, c.InstallCandidates)
	assert.Contains(t, c.ProcessNames, "antigravity")
	assert.Contains(t, c.ProcessExcludes, "manager")
	assert.Equal(t, 30*time.Second, c.HTTPTimeout)
	assert.Equal(t, time.Second, c.KillPause)
}

func TestLoadDefaults_NoEmptyCandidatePaths(t *testing.T) {
	// With APPDATA absent the windows-only candidates must drop out instead
	// of degenerating into relative paths.
	t.Setenv("APPDATA", "")
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("ProgramFiles", "")

	var c Config
	c.LoadDefaults()

	for _, p := range c.StateDBCandidates {
		assert.NotEmpty(t, p)
	}
	for _, p := range c.InstallCandidates {
		assert.NotEmpty(t, p)
	}
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"accounts_db_path": "/tmp/accounts.db",
		"http_timeout":     "10s",
		"process_names":    []string{"hosty"},
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "/tmp/accounts.db", cfg.AccountsDBPath)
		assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
		assert.Equal(t, []string{"hosty"}, cfg.ProcessNames)
		// untouched fields keep their defaults
		assert.Equal(t, time.Second, cfg.KillPause)
	})

	t.Run("no config flag leaves values unchanged", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{AccountsDBPath: "keep.db", HTTPTimeout: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "keep.db", cfg.AccountsDBPath)
		assert.Equal(t, 42*time.Second, cfg.HTTPTimeout)
	})
}

func Test_parseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"testbin", "-db", "/tmp/other.db", "-state", "/tmp/state.vscdb", "-t", "5"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, "/tmp/other.db", cfg.AccountsDBPath)
	assert.Equal(t, []string{"/tmp/state.vscdb"}, cfg.StateDBCandidates)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Second, cfg.KillPause)
}
