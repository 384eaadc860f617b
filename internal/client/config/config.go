package config

import (
	"fmt"
	"os"
	"time"

	"github.com/catermarket/caterauth/internal/client/challenge"
	"github.com/catermarket/caterauth/internal/client/credentials"
	"github.com/catermarket/caterauth/internal/client/events"
	"github.com/catermarket/caterauth/internal/flagx"
)

// Config holds runtime settings for the caterauth CLI.
type Config struct {
	APIBaseURL  string
	GRPCAddr    string
	SiteURL     string
	DSN         string
	RedisURL    string
	Profile     string
	LogLevel    string
	HTTPTimeout time.Duration

	PollInterval time.Duration

	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	SignupOTPTTL time.Duration
	ResetOTPTTL  time.Duration

	// StoreSecret seals page-store values at rest when non-empty.
	StoreSecret string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080/api/v1"
	c.GRPCAddr = ""
	// Session cookies ride along on API calls only when the API shares the
	// site's host, so both defaults use the same one.
	c.SiteURL = "http://127.0.0.1:3000"
	c.DSN = "file:caterauth.db"
	c.RedisURL = ""
	c.Profile = "default"
	c.LogLevel = "info"
	c.HTTPTimeout = 0
	c.PollInterval = events.DefaultPollInterval
	c.AccessTTL = credentials.DefaultAccessTTL
	c.RefreshTTL = credentials.DefaultRefreshTTL
	c.SignupOTPTTL = challenge.DefaultSignupTTL
	c.ResetOTPTTL = challenge.DefaultResetTTL
	c.StoreSecret = ""
}

// KeyPrefix namespaces Redis keys and channels of this profile.
func (c *Config) KeyPrefix() string {
	return "caterauth:" + c.Profile
}

// LoadConfig constructs a Config from defaults, then the JSON file named by
// -c/-config, then flags. Later sources take precedence.
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
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" && c.GRPCAddr == "" {
		return fmt.Errorf("config: one of api base url (-a) or grpc address (-g) is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll interval must be positive, got %s", c.PollInterval)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("config: cookie lifetimes must be positive")
	}
	return nil
}
