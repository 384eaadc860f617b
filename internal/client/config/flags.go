package config

import (
	"flag"
	"io"
	"time"

	"github.com/catermarket/caterauth/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-s", "-d", "-r", "-p", "-i", "-l"}

// parseFlags populates Config fields from command-line flags. Arguments it
// does not know, such as -c, are filtered out with flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("caterauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "Identity API base URL")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "Identity gRPC address")
	fs.StringVar(&cfg.SiteURL, "s", cfg.SiteURL, "site URL the session cookies belong to")
	fs.StringVar(&cfg.DSN, "d", cfg.DSN, "SQLite DSN of the local store")
	fs.StringVar(&cfg.RedisURL, "r", cfg.RedisURL, "Redis URL")
	fs.StringVar(&cfg.Profile, "p", cfg.Profile, "profile name")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	poll := fs.Int("i", int(cfg.PollInterval.Seconds()), "session poll interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.PollInterval = time.Duration(*poll) * time.Second
		}
	})
	return nil
}
