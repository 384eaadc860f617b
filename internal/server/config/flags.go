package config

import (
	"flag"
	"io"

	"github.com/catermarket/caterauth/internal/flagx"
)

// parseFlags populates Config from command-line flags.
//
//	-a string   listen address
//	-u string   upstream frontend URL
//	-l string   log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-u", "-l"})

	fs := flag.NewFlagSet("gate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "listen address")
	fs.StringVar(&cfg.UpstreamURL, "u", cfg.UpstreamURL, "upstream frontend URL")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(args)
}
