// Package config handles configuration for the device agent, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"time"

	"github.com/fieldops/shiftsync/internal/common"
)

// Config holds runtime settings for the ShiftSync agent.
//
// Fields:
//   - DatabaseDSN: path/DSN of the local SQLite database.
//   - ServerBaseURL: base URL of the remote sync API.
//   - SyncInterval: how often the dispatcher drains the queue in addition
//     to the after-enqueue trigger.
//   - SyncTimeout: bound on one delivery attempt.
type Config struct {
	DatabaseDSN   string
	ServerBaseURL string
	SyncInterval  time.Duration
	SyncTimeout   time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDSN = "shiftsync-agent.db"
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.SyncInterval = 30 * time.Second
	c.SyncTimeout = common.DefaultSyncTimeout
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
