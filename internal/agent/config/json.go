package config

import (
	"encoding/json"
	"os"

	"github.com/fieldops/shiftsync/internal/flagx"
	"github.com/fieldops/shiftsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	DatabaseDSN   string         `json:"database_dsn"`
	ServerBaseURL string         `json:"server_base_url"`
	SyncInterval  timex.Duration `json:"sync_interval"`
	SyncTimeout   timex.Duration `json:"sync_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Panics on read or unmarshal errors. Intended usage is:
// defaults -> parseJson -> parseFlags, later stages override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.SyncInterval != 0 {
		cfg.SyncInterval = jc.SyncInterval.Std()
	}
	if jc.SyncTimeout != 0 {
		cfg.SyncTimeout = jc.SyncTimeout.Std()
	}
}
