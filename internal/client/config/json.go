package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/catermarket/caterauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent
// fields keep the value already in Config.
type JsonConfig struct {
	APIBaseURL   string          `json:"api_base_url"`
	GRPCAddr     string          `json:"grpc_addr"`
	SiteURL      string          `json:"site_url"`
	DSN          string          `json:"dsn"`
	RedisURL     string          `json:"redis_url"`
	Profile      string          `json:"profile"`
	LogLevel     string          `json:"log_level"`
	HTTPTimeout  *timex.Duration `json:"http_timeout"`
	PollInterval *timex.Duration `json:"poll_interval"`
	AccessTTL    *timex.Duration `json:"access_ttl"`
	RefreshTTL   *timex.Duration `json:"refresh_ttl"`
	SignupOTPTTL *timex.Duration `json:"signup_otp_ttl"`
	ResetOTPTTL  *timex.Duration `json:"reset_otp_ttl"`
	StoreSecret  string          `json:"store_secret"`
}

// parseJson overlays cfg with the JSON file at path.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.GRPCAddr, jc.GRPCAddr)
	setString(&cfg.SiteURL, jc.SiteURL)
	setString(&cfg.DSN, jc.DSN)
	setString(&cfg.RedisURL, jc.RedisURL)
	setString(&cfg.Profile, jc.Profile)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.StoreSecret, jc.StoreSecret)

	setDuration(&cfg.HTTPTimeout, jc.HTTPTimeout)
	setDuration(&cfg.PollInterval, jc.PollInterval)
	setDuration(&cfg.AccessTTL, jc.AccessTTL)
	setDuration(&cfg.RefreshTTL, jc.RefreshTTL)
	setDuration(&cfg.SignupOTPTTL, jc.SignupOTPTTL)
	setDuration(&cfg.ResetOTPTTL, jc.ResetOTPTTL)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
