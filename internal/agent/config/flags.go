package config

import (
	"flag"
	"os"
	"time"

	"github.com/fieldops/shiftsync/internal/flagx"
)

// parseFlags populates selected agent Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   local SQLite DSN
//	-s string   remote sync API base URL
//	-i int      sync interval, seconds
//	-t int      per-attempt sync timeout, seconds
//
// Args are filtered via flagx.FilterArgs first so the shared -c/-config
// flags (and anything else) do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-s", "-i", "-t"})

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "local database DSN")
	fs.StringVar(&config.ServerBaseURL, "s", config.ServerBaseURL, "sync API base URL")

	syncInterval := fs.Int("i", int(config.SyncInterval.Seconds()), "sync interval (in seconds)")
	syncTimeout := fs.Int("t", int(config.SyncTimeout.Seconds()), "sync timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SyncInterval = time.Duration(*syncInterval) * time.Second
	config.SyncTimeout = time.Duration(*syncTimeout) * time.Second
}
