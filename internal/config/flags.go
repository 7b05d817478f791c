package config

import (
	"flag"
	"os"
	"time"

	"github.com/lalds/AntigravityManager/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-db string      accounts database file
//	-state string   host state database file (replaces the candidate list)
//	-t int          API request timeout in seconds
//	-p int          pause after terminating the host, in seconds
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-db", "-state", "-t", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.AccountsDBPath, "db", cfg.AccountsDBPath, "accounts database file")
	stateDB := fs.String("state", "", "host state database file")
	timeoutSec := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "API request timeout (in seconds)")
	pauseSec := fs.Int("p", int(cfg.KillPause.Seconds()), "pause after terminating the host (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *stateDB != "" {
		cfg.StateDBCandidates = []string{*stateDB}
	}
	cfg.HTTPTimeout = time.Duration(*timeoutSec) * time.Second
	cfg.KillPause = time.Duration(*pauseSec) * time.Second
}
