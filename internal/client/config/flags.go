package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/flagx"
)

// parseFlags populates Config from command-line flags:
//
//	-a string   API base URL
//	-m string   media base URL
//	-d string   path of the local session database
//	-l string   log level (debug, info, warn, error)
//	-t int      request timeout in seconds
//	-i int      session check interval in seconds (0 disables)
//
// os.Args is filtered with flagx.FilterArgs first so flags owned by other
// packages (-c, -e) do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-d", "-l", "-t", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	fs.StringVar(&cfg.MediaBaseURL, "m", cfg.MediaBaseURL, "media base URL")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local session database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	sessionCheckInterval := fs.Int("i", int(cfg.SessionCheckInterval.Seconds()), "session check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.SessionCheckInterval = time.Duration(*sessionCheckInterval) * time.Second
}
