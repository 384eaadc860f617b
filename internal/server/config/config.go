// Package config handles configuration for the gate server, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/catermarket/caterauth/internal/flagx"
)

// Config holds runtime settings for the gate server.
//
// Fields:
//   - ListenAddr: bind address of the HTTP listener.
//   - UpstreamURL: frontend the gate proxies admitted requests to.
//   - LogLevel: slog level name.
//   - ShutdownTimeout: grace period for in-flight requests on shutdown.
type Config struct {
	ListenAddr      string
	UpstreamURL     string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8081"
	c.UpstreamURL = "http://127.0.0.1:3000"
	c.LogLevel = "info"
	c.ShutdownTimeout = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path := flagx.ConfigPath(args); path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("config: upstream url (-u) is required")
	}
	return cfg, nil
}
