package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/lalds/AntigravityManager/internal/flagx"
	"github.com/lalds/AntigravityManager/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds.
type JsonConfig struct {
	DataDirs          []string       `json:"data_dirs"`
	AccountsDBPath    string         `json:"accounts_db_path"`
	AliasPath         string         `json:"alias_path"`
	StateDBCandidates []string       `json:"state_db_candidates"`
	InstallCandidates []string       `json:"install_candidates"`
	ProcessNames      []string       `json:"process_names"`
	ProcessExcludes   []string       `json:"process_excludes"`
	HTTPTimeout       timex.Duration `json:"http_timeout"`
	KillPause         timex.Duration `json:"kill_pause"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c or -config flag. Absent fields keep their earlier values. Panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if len(jc.DataDirs) > 0 {
		cfg.DataDirs = jc.DataDirs
	}
	if jc.AccountsDBPath != "" {
		cfg.AccountsDBPath = jc.AccountsDBPath
	}
	if jc.AliasPath != "" {
		cfg.AliasPath = jc.AliasPath
	}
	if len(jc.StateDBCandidates) > 0 {
		cfg.StateDBCandidates = jc.StateDBCandidates
	}
	if len(jc.InstallCandidates) > 0 {
		cfg.InstallCandidates = jc.InstallCandidates
	}
	if len(jc.ProcessNames) > 0 {
		cfg.ProcessNames = jc.ProcessNames
	}
	if len(jc.ProcessExcludes) > 0 {
		cfg.ProcessExcludes = jc.ProcessExcludes
	}
	if jc.HTTPTimeout.Duration != 0 {
		cfg.HTTPTimeout = time.Duration(jc.HTTPTimeout.Duration)
	}
	if jc.KillPause.Duration != 0 {
		cfg.KillPause = time.Duration(jc.KillPause.Duration)
	}
}
