package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/lalds/AntigravityManager/internal/filex"
)

// Names of well-known files inside the data directory.
const (
	AccountsDBName = "cloud_accounts.db"
	AliasFileName  = "aliases.json"
)

// Config holds runtime settings for the manager CLI.
//
// Paths come in two flavors: resolved single paths (AccountsDBPath,
// AliasPath) and candidate lists probed in order at use time (DataDirs,
// StateDBCandidates, InstallCandidates), because the host application's
// layout differs between machines and versions.
type Config struct {
	// DataDirs are candidate directories holding the host's key material
	// and this tool's own data, probed in order.
	DataDirs []string

	// AccountsDBPath is the accounts database file.
	AccountsDBPath string

	// AliasPath is the alias map file.
	AliasPath string

	// StateDBCandidates are candidate paths of the host's state database.
	StateDBCandidates []string

	// InstallCandidates are candidate paths of the host executable.
	InstallCandidates []string

	// ProcessNames are substrings identifying host processes.
	ProcessNames []string

	// ProcessExcludes are substrings that exempt a process from matching,
	// so the manager never kills itself.
	ProcessExcludes []string

	// HTTPTimeout bounds each outbound API request.
	HTTPTimeout time.Duration

	// KillPause is the settle delay between terminating the host and
	// touching its state database.
	KillPause time.Duration
}

// LoadDefaults populates c with platform-derived defaults.
func (c *Config) LoadDefaults() {
	home := filex.HomeDir()
	appData := os.Getenv("APPDATA")
	localAppData := os.Getenv("LOCALAPPDATA")
	programFiles := os.Getenv("ProgramFiles")

	c.DataDirs = nonEmpty(
		filex.Join(home, ".antigravity-agent"),
		filex.Join(appData, "Antigravity Manager"),
		filex.Join(appData, "AntigravityManager"),
	)

	dataDir := filex.FirstExisting(c.DataDirs)
	if dataDir == "" && len(c.DataDirs) > 0 {
		dataDir = c.DataDirs[0]
	}
	c.AccountsDBPath = filepath.Join(dataDir, AccountsDBName)
	c.AliasPath = filepath.Join(dataDir, AliasFileName)

	c.StateDBCandidates = nonEmpty(
		filex.Join(appData, "Antigravity", "User", "globalStorage", "state.vscdb"),
		filex.Join(appData, "Antigravity IDE", "User", "globalStorage", "state.vscdb"),
		filex.Join(home, ".config", "Antigravity", "User", "globalStorage", "state.vscdb"),
	)

	c.InstallCandidates = nonEmpty(
		filex.Join(localAppData, "Programs", "Antigravity", "Antigravity.exe"),
		filex.Join(programFiles, "Antigravity", "Antigravity.exe"),
		"/usr/share/antigravity/antigravity",
		filex.Join(home, ".local", "share", "antigravity", "antigravity"),
	)

	c.ProcessNames = []string{"antigravity"}
	c.ProcessExcludes = []string{"manager", "agm"}

	c.HTTPTimeout = 30 * time.Second
	c.KillPause = time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

func nonEmpty(paths ...string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
