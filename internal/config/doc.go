// Package config loads runtime configuration for the manager CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults), derived from the
//     platform's well-known directories.
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-db string      accounts database file
//	-state string   host state database file
//	-t int          API request timeout (seconds)
//	-p int          pause after terminating the host (seconds)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "30s"
// or integer nanoseconds:
//
//	{
//	  "accounts_db_path": "C:\\data\\cloud_accounts.db",
//	  "http_timeout": "30s",
//	  "kill_pause": "1s"
//	}
package config
